package drinks

import (
	"context"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates drink menu persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCategories(ctx context.Context, activeOnly bool) ([]models.DrinkCategory, error) {
	q := r.db.WithContext(ctx).Model(&models.DrinkCategory{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.DrinkCategory
	err := q.Order("display_order ASC").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.DrinkCategory, error) {
	var row models.DrinkCategory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *models.DrinkCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.DrinkCategory{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DrinkCategory{})
	return res.RowsAffected, res.Error
}

// CountDrinksInCategory counts every drink referencing the category, active or not.
func (r *Repository) CountDrinksInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Drink{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *Repository) ListDrinks(ctx context.Context, params ListDrinksParams) ([]models.Drink, error) {
	q := r.db.WithContext(ctx).Model(&models.Drink{})
	if params.CategoryID != nil {
		q = q.Where("category_id = ?", *params.CategoryID)
	}
	if !params.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Drink
	err := q.Order("display_order ASC").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindDrink(ctx context.Context, id uuid.UUID) (*models.Drink, error) {
	var row models.Drink
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateDrink(ctx context.Context, d *models.Drink) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repository) UpdateDrink(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Drink{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteDrink(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Drink{})
	return res.RowsAffected, res.Error
}
