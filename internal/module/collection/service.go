package collection

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/events"
)

const maxNotesLength = 2000

// collectionService implements domain.CollectionService.
type collectionService struct {
	repo      domain.CollectionRepository
	publisher events.Publisher
	log       *slog.Logger
}

// NewCollectionService creates a CollectionService. A nil publisher drops
// events and a nil logger falls back to slog.Default().
func NewCollectionService(repo domain.CollectionRepository, publisher events.Publisher, log *slog.Logger) domain.CollectionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &collectionService{repo: repo, publisher: publisher, log: log}
}

// Add stores entry in userID's collection and announces it.
func (s *collectionService) Add(ctx context.Context, userID string, entry domain.PendingEntry) error {
	if userID == "" {
		return domain.NewAppError(domain.CodeUnauthorized, "user must be signed in to add games", nil)
	}
	if entry.ID <= 0 || strings.TrimSpace(entry.Name) == "" {
		return domain.NewAppError(domain.CodeValidation, "no game selected", nil)
	}
	if err := validateStatus(entry.Status); err != nil {
		return err
	}
	entry.Platform = strings.TrimSpace(entry.Platform)
	if err := validateNotes(entry.Notes); err != nil {
		return err
	}

	stored := domain.NewCollectionEntry(userID, entry)
	if err := s.repo.Create(ctx, stored); err != nil {
		return err
	}

	if err := s.publisher.PublishEntryAdded(ctx, events.NewEntryAdded(stored)); err != nil {
		s.log.WarnContext(ctx, "publish entry added failed",
			slog.Uint64("entry_id", uint64(stored.ID)), slog.Any("error", err))
	}
	return nil
}

// List returns a page of userID's collection.
func (s *collectionService) List(ctx context.Context, userID string, req domain.PageRequest) (*pagination.Pagination[domain.CollectionEntry], error) {
	if userID == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "sign in required", nil)
	}
	return s.repo.ListByUser(ctx, userID, req)
}

// UpdateEntry changes the status and notes of one of userID's entries.
func (s *collectionService) UpdateEntry(ctx context.Context, userID string, id uint, status, notes string) (*domain.CollectionEntry, error) {
	if userID == "" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "sign in required", nil)
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	entry, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entry.Status = status
	entry.Notes = notes

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes one of userID's entries.
func (s *collectionService) Remove(ctx context.Context, userID string, id uint) error {
	if userID == "" {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in required", nil)
	}
	return s.repo.Delete(ctx, userID, id)
}

// validateStatus accepts an empty status and otherwise one of the known slugs.
func validateStatus(status string) error {
	if status != "" && !domain.IsValidStatus(status) {
		return domain.NewAppError(domain.CodeValidation, "status must be one of: playing, toplay, completed, onhold, dropped, owned", nil)
	}
	return nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return domain.NewAppError(domain.CodeValidation, "notes must be at most 2000 characters", nil)
	}
	return nil
}
