package casts

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/angelmondragon/castmenu-backend/pkg/sqlbuild"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together cast persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Search runs the listing for params and the count that pairs with it.
func (r *Repository) Search(ctx context.Context, params SearchParams) ([]models.Cast, int64, error) {
	q, err := composeListQuery(r.db.WithContext(ctx), params)
	if err != nil {
		return nil, 0, err
	}
	var rows []models.Cast
	if err := q.list.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list casts: %w", err)
	}
	var total int64
	if err := q.count.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count casts: %w", err)
	}
	return rows, total, nil
}

// FindByID loads a cast regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cast, error) {
	var cast models.Cast
	if err := r.db.WithContext(ctx).First(&cast, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cast, nil
}

// Photos returns the gallery ordered by position.
func (r *Repository) Photos(ctx context.Context, castID uuid.UUID) ([]models.CastPhoto, error) {
	var photos []models.CastPhoto
	err := r.db.WithContext(ctx).
		Where("cast_id = ?", castID).
		Order("order_index ASC").
		Find(&photos).
		Error
	return photos, err
}

// Stats returns the stats row or nil when the cast has none.
func (r *Repository) Stats(ctx context.Context, castID uuid.UUID) (*models.CastStats, error) {
	var stats []models.CastStats
	if err := r.db.WithContext(ctx).Where("cast_id = ?", castID).Limit(1).Find(&stats).Error; err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}
	return &stats[0], nil
}

type assignedBadgeRow struct {
	ID           uuid.UUID
	Name         string
	Color        string
	DisplayOrder int
	AssignedAt   time.Time
}

// Badges returns the badges assigned to a cast in catalog order.
func (r *Repository) Badges(ctx context.Context, castID uuid.UUID) ([]BadgeDTO, error) {
	var rows []assignedBadgeRow
	err := r.db.WithContext(ctx).Raw(`
SELECT b.id, b.name, b.color, b.display_order, cb.assigned_at
FROM cast_badges cb
INNER JOIN badges b ON b.id = cb.badge_id
WHERE cb.cast_id = ?
ORDER BY b.display_order ASC, b.name ASC`, castID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]BadgeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, BadgeDTO(row))
	}
	return out, nil
}

// Create inserts the cast row.
func (r *Repository) Create(ctx context.Context, cast *models.Cast) error {
	return r.db.WithContext(ctx).Create(cast).Error
}

// CreateStats inserts the stats row for a cast.
func (r *Repository) CreateStats(ctx context.Context, stats *models.CastStats) error {
	return r.db.WithContext(ctx).Create(stats).Error
}

// Patch applies sparse assignments to the row keyed by column = id. It
// reports how many rows matched.
func (r *Repository) Patch(ctx context.Context, table string, assigns []sqlbuild.Assignment, column string, id uuid.UUID) (int64, error) {
	return sqlbuild.Update(r.db.WithContext(ctx), table, assigns, sqlbuild.Predicate{Column: column, Op: sqlbuild.Eq, Value: id})
}

// ReplacePhotos discards the gallery and inserts urls in order. The first url is the main photo.
func (r *Repository) ReplacePhotos(ctx context.Context, castID uuid.UUID, urls []string, now time.Time) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cast_id = ?", castID).Delete(&models.CastPhoto{}).Error; err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}
	photos := make([]models.CastPhoto, 0, len(urls))
	for i, url := range urls {
		photos = append(photos, models.CastPhoto{
			ID:         uuid.New(),
			CastID:     castID,
			PhotoURL:   url,
			OrderIndex: i,
			IsMain:     i == 0,
			CreatedAt:  now,
		})
	}
	return tx.Create(&photos).Error
}

// ReplaceBadges discards every assignment of the cast and inserts badgeIDs.
func (r *Repository) ReplaceBadges(ctx context.Context, castID uuid.UUID, badgeIDs []uuid.UUID, actor *uuid.UUID, now time.Time) error {
	if err := r.ClearBadges(ctx, castID); err != nil {
		return err
	}
	if len(badgeIDs) == 0 {
		return nil
	}
	rows := make([]models.CastBadge, 0, len(badgeIDs))
	for _, id := range badgeIDs {
		rows = append(rows, models.CastBadge{CastID: castID, BadgeID: id, AssignedAt: now, AssignedBy: actor})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ClearBadges removes every assignment of the cast.
func (r *Repository) ClearBadges(ctx context.Context, castID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cast_id = ?", castID).Delete(&models.CastBadge{}).Error
}

// CountBadges returns how many of ids exist in the catalog.
func (r *Repository) CountBadges(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Badge{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// IsAssigned reports whether the badge is already on the cast.
func (r *Repository) IsAssigned(ctx context.Context, castID, badgeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CastBadge{}).
		Where("cast_id = ? AND badge_id = ?", castID, badgeID).
		Count(&count).
		Error
	return count > 0, err
}

// Assign inserts one assignment row.
func (r *Repository) Assign(ctx context.Context, row *models.CastBadge) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Unassign removes one assignment row and reports whether it existed.
func (r *Repository) Unassign(ctx context.Context, castID, badgeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cast_id = ? AND badge_id = ?", castID, badgeID).
		Delete(&models.CastBadge{})
	return res.RowsAffected > 0, res.Error
}
