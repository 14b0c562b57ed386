package collection

import (
	"context"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/pkg"
)

const duplicateEntryMessage = "game is already in your collection"

// allowedFields lists the columns a listing may filter and sort on.
var allowedFields = []string{"name", "status", "platform", "created_at"}

// collectionRepository implements domain.CollectionRepository using GORM.
type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a CollectionRepository backed by db.
func NewCollectionRepository(db *gorm.DB) domain.CollectionRepository {
	return &collectionRepository{db: db}
}

// Create inserts entry. A second entry for the same user and game is rejected.
func (r *collectionRepository) Create(ctx context.Context, entry *domain.CollectionEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkg.MapDBError(err, duplicateEntryMessage)
	}
	return nil
}

// GetByID returns the entry id if it belongs to userID.
func (r *collectionRepository) GetByID(ctx context.Context, userID string, id uint) (*domain.CollectionEntry, error) {
	var entry domain.CollectionEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&entry, id).Error
	if err != nil {
		return nil, pkg.MapDBError(err, "")
	}
	return &entry, nil
}

// ListByUser returns a filtered, sorted page of userID's entries. A page past
// the end is clamped to the last page.
func (r *collectionRepository) ListByUser(ctx context.Context, userID string, req domain.PageRequest) (*pagination.Pagination[domain.CollectionEntry], error) {
	query := func(ctx context.Context) *gorm.DB {
		return r.db.WithContext(ctx).Model(&domain.CollectionEntry{}).
			Where("user_id = ?", userID).
			Scopes(pkg.Filter(req, allowedFields))
	}

	paginator := pagination.NewPaginator(
		pagination.WithItemsPerPage[domain.CollectionEntry](req.PageSize),
		pagination.WithPagesInRange[domain.CollectionEntry](pkg.PagesInRange),
		pagination.WithItemTotalCallback[domain.CollectionEntry](func(ctx context.Context) (int64, error) {
			var total int64
			if err := query(ctx).Count(&total).Error; err != nil {
				return 0, pkg.MapDBError(err, "")
			}
			return total, nil
		}),
		pagination.WithSliceCallback(func(ctx context.Context, offset, limit int) ([]domain.CollectionEntry, error) {
			var entries []domain.CollectionEntry
			err := query(ctx).
				Scopes(pkg.Sort(req, allowedFields)).
				Offset(offset).Limit(limit).
				Find(&entries).Error
			if err != nil {
				return nil, pkg.MapDBError(err, "")
			}
			return entries, nil
		}),
	)

	result, err := paginator.Paginate(ctx, req.Page)
	if err != nil {
		return nil, pkg.MapPageError(err)
	}
	return result, nil
}

// Update saves the mutable fields of entry. The row must exist and belong to
// entry.UserID.
func (r *collectionRepository) Update(ctx context.Context, entry *domain.CollectionEntry) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var current domain.CollectionEntry
		if err := tx.Where("user_id = ?", entry.UserID).First(&current, entry.ID).Error; err != nil {
			return pkg.MapDBError(err, "")
		}
		err := tx.Model(&current).Updates(map[string]any{
			"platform": entry.Platform,
			"status":   entry.Status,
			"notes":    entry.Notes,
		}).Error
		if err != nil {
			return pkg.MapDBError(err, duplicateEntryMessage)
		}
		entry.UpdatedAt = current.UpdatedAt
		return nil
	})
}

// Delete removes the entry id owned by userID.
func (r *collectionRepository) Delete(ctx context.Context, userID string, id uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.CollectionEntry{}, id)
	if result.Error != nil {
		return pkg.MapDBError(result.Error, "")
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
