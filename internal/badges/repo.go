package badges

import (
	"context"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates badge persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a badge repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns the catalog in display order, ties broken by name.
func (r *Repository) List(ctx context.Context) ([]models.Badge, error) {
	var rows []models.Badge
	err := r.db.WithContext(ctx).
		Order("display_order ASC").
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *Repository) Create(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

// Update applies the column map and reports how many rows matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Badge{}).
		Where("id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// Delete removes a badge; assignments cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Badge{})
	return res.RowsAffected, res.Error
}
