package drinks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/cache"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const menuCacheKey = "drinks:menu"

// Service manages drink categories, drinks and the public menu.
type Service interface {
	Menu(ctx context.Context) ([]MenuSection, error)

	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListDrinks(ctx context.Context, params ListDrinksParams) ([]DrinkDTO, error)
	CreateDrink(ctx context.Context, input CreateDrinkInput) (*DrinkDTO, error)
	UpdateDrink(ctx context.Context, id uuid.UUID, input UpdateDrinkInput) (*DrinkDTO, error)
	DeleteDrink(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  *Repository
	cache *cache.JSONCache
	now   func() time.Time
}

// NewService wires the drink service. A nil cache disables menu caching.
func NewService(repo *Repository, menuCache *cache.JSONCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("drink repository required")
	}
	return &service{
		repo:  repo,
		cache: menuCache,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

// Menu returns active categories with their active drinks.
func (s *service) Menu(ctx context.Context) ([]MenuSection, error) {
	key := s.cache.Key(menuCacheKey)
	var cached []MenuSection
	if s.cache.Load(ctx, key, &cached) {
		return cached, nil
	}

	categories, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drink categories")
	}
	drinks, err := s.repo.ListDrinks(ctx, ListDrinksParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drinks")
	}

	byCategory := make(map[uuid.UUID][]DrinkDTO, len(categories))
	for _, d := range drinks {
		byCategory[d.CategoryID] = append(byCategory[d.CategoryID], toDrinkDTO(d))
	}

	menu := make([]MenuSection, 0, len(categories))
	for _, c := range categories {
		items := byCategory[c.ID]
		if items == nil {
			items = []DrinkDTO{}
		}
		menu = append(menu, MenuSection{ID: c.ID, Name: c.Name, DisplayOrder: c.DisplayOrder, Drinks: items})
	}

	s.cache.Save(ctx, key, menu)
	return menu, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drink categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategoryDTO(row))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	now := s.now()
	row := models.DrinkCategory{
		ID:           uuid.New(),
		Name:         name,
		DisplayOrder: input.DisplayOrder,
		IsActive:     boolOr(input.IsActive, true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateCategory(ctx, &row); err != nil {
		return nil, db.ClassifyWrite(err, "create drink category")
	}
	s.invalidateMenu(ctx)
	dto := toCategoryDTO(row)
	return &dto, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	updates := input.updates()
	if name, ok := updates["name"].(string); ok && strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		affected, err := s.repo.UpdateCategory(ctx, id, updates)
		if err != nil {
			return nil, db.ClassifyWrite(err, "update drink category")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "drink category not found")
		}
		s.invalidateMenu(ctx)
	}
	row, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "drink category")
	}
	dto := toCategoryDTO(*row)
	return &dto, nil
}

// DeleteCategory refuses while any drink, active or not, still references the category.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountDrinksInCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category drinks")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "drink category still has drinks").
			WithDetails(map[string]any{"drinks": count})
	}
	affected, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "drink category still has drinks")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete drink category")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "drink category not found")
	}
	s.invalidateMenu(ctx)
	return nil
}

func (s *service) ListDrinks(ctx context.Context, params ListDrinksParams) ([]DrinkDTO, error) {
	rows, err := s.repo.ListDrinks(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drinks")
	}
	out := make([]DrinkDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDrinkDTO(row))
	}
	return out, nil
}

func (s *service) CreateDrink(ctx context.Context, input CreateDrinkInput) (*DrinkDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drink name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCategory(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown drink category").
				OnField("category_id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load drink category")
	}

	now := s.now()
	row := models.Drink{
		ID:            uuid.New(),
		CategoryID:    input.CategoryID,
		Name:          name,
		Price:         input.Price.Round(2),
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		IsRecommended: input.IsRecommended,
		DisplayOrder:  input.DisplayOrder,
		IsActive:      boolOr(input.IsActive, true),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateDrink(ctx, &row); err != nil {
		return nil, db.ClassifyWrite(err, "create drink")
	}
	s.invalidateMenu(ctx)
	dto := toDrinkDTO(row)
	return &dto, nil
}

func (s *service) UpdateDrink(ctx context.Context, id uuid.UUID, input UpdateDrinkInput) (*DrinkDTO, error) {
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		rounded := input.Price.Round(2)
		input.Price = &rounded
	}
	updates := input.updates()
	if name, ok := updates["name"].(string); ok && strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drink name is required")
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		affected, err := s.repo.UpdateDrink(ctx, id, updates)
		if err != nil {
			return nil, db.ClassifyWrite(err, "update drink")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "drink not found")
		}
		s.invalidateMenu(ctx)
	}
	row, err := s.repo.FindDrink(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "drink")
	}
	dto := toDrinkDTO(*row)
	return &dto, nil
}

func (s *service) DeleteDrink(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.DeleteDrink(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete drink")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "drink not found")
	}
	s.invalidateMenu(ctx)
	return nil
}

func (s *service) invalidateMenu(ctx context.Context) {
	s.cache.Invalidate(ctx, s.cache.Key(menuCacheKey))
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			OnField("price")
	}
	return nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load "+what)
}
