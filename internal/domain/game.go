package domain

import (
	"context"

	"github.com/simp-lee/pagination"
)

// SearchPageSize is the number of catalog results per page.
const SearchPageSize = 20

// Platform is catalog metadata for a platform a game was released on.
type Platform struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// SearchResultItem is an immutable snapshot of one catalog game.
type SearchResultItem struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	BackgroundImage string     `json:"background_image"`
	Platforms       []Platform `json:"platforms"`
}

// SearchPage is one page of catalog results plus the total match count.
type SearchPage struct {
	Results    []SearchResultItem `json:"results"`
	TotalCount int                `json:"total_count"`
}

// StatusOption is one of the fixed play statuses a collection entry can carry.
type StatusOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var statusOptions = []StatusOption{
	{ID: 1, Name: "Playing", Slug: "playing"},
	{ID: 2, Name: "Toplay", Slug: "toplay"},
	{ID: 3, Name: "Completed", Slug: "completed"},
	{ID: 4, Name: "On-hold", Slug: "onhold"},
	{ID: 5, Name: "Dropped", Slug: "dropped"},
	{ID: 6, Name: "Owned", Slug: "owned"},
}

// StatusOptions returns a fresh copy of the fixed status set, in display order.
func StatusOptions() []StatusOption {
	out := make([]StatusOption, len(statusOptions))
	copy(out, statusOptions)
	return out
}

// IsValidStatus reports whether slug names one of the fixed status options.
func IsValidStatus(slug string) bool {
	for _, s := range statusOptions {
		if s.Slug == slug {
			return true
		}
	}
	return false
}

// PendingEntry is a game the user confirmed but that is not yet persisted.
type PendingEntry struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	BackgroundImage string `json:"background_image"`
	Platform        string `json:"platform"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
}

// CollectionEntry is a game stored in a user's collection.
type CollectionEntry struct {
	BaseModel
	UserID          string `gorm:"size:64;not null;uniqueIndex:idx_collection_user_game" json:"user_id"`
	GameID          int    `gorm:"not null;uniqueIndex:idx_collection_user_game" json:"game_id"`
	Name            string `gorm:"size:255;not null" json:"name"`
	Slug            string `gorm:"size:255" json:"slug"`
	BackgroundImage string `gorm:"size:1024" json:"background_image"`
	Platform        string `gorm:"size:100" json:"platform"`
	Status          string `gorm:"size:32" json:"status"`
	Notes           string `gorm:"type:text" json:"notes"`
}

// NewCollectionEntry builds the persisted form of a pending entry for userID.
func NewCollectionEntry(userID string, p PendingEntry) *CollectionEntry {
	return &CollectionEntry{
		UserID:          userID,
		GameID:          p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		BackgroundImage: p.BackgroundImage,
		Platform:        p.Platform,
		Status:          p.Status,
		Notes:           p.Notes,
	}
}

// SearchClient looks games up in the external catalog.
type SearchClient interface {
	Search(ctx context.Context, term string, page int) (*SearchPage, error)
}

// CollectionStore persists a confirmed game into a user's collection.
type CollectionStore interface {
	Add(ctx context.Context, userID string, entry PendingEntry) error
}

// CollectionRepository defines the data access interface for collection entries.
type CollectionRepository interface {
	Create(ctx context.Context, entry *CollectionEntry) error
	GetByID(ctx context.Context, userID string, id uint) (*CollectionEntry, error)
	ListByUser(ctx context.Context, userID string, req PageRequest) (*pagination.Pagination[CollectionEntry], error)
	Update(ctx context.Context, entry *CollectionEntry) error
	Delete(ctx context.Context, userID string, id uint) error
}

// CollectionService is the business interface for a user's collection.
type CollectionService interface {
	CollectionStore
	List(ctx context.Context, userID string, req PageRequest) (*pagination.Pagination[CollectionEntry], error)
	UpdateEntry(ctx context.Context, userID string, id uint, status, notes string) (*CollectionEntry, error)
	Remove(ctx context.Context, userID string, id uint) error
}
