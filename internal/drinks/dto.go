package drinks

import (
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DrinkDTO struct {
	ID            uuid.UUID       `json:"id"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Description   *string         `json:"description"`
	ImageURL      *string         `json:"image_url"`
	IsRecommended bool            `json:"is_recommended"`
	DisplayOrder  int             `json:"display_order"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MenuSection is one active category with its active drinks, as shown publicly.
type MenuSection struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	DisplayOrder int        `json:"display_order"`
	Drinks       []DrinkDTO `json:"drinks"`
}

type CreateCategoryInput struct {
	Name         string
	DisplayOrder int
	IsActive     *bool
}

type UpdateCategoryInput struct {
	Name         *string
	DisplayOrder *int
	IsActive     *bool
}

// ListDrinksParams filters the admin drink list.
type ListDrinksParams struct {
	CategoryID      *uuid.UUID
	IncludeInactive bool
}

type CreateDrinkInput struct {
	CategoryID    uuid.UUID
	Name          string
	Price         decimal.Decimal
	Description   *string
	ImageURL      *string
	IsRecommended bool
	DisplayOrder  int
	IsActive      *bool
}

type UpdateDrinkInput struct {
	CategoryID    *uuid.UUID
	Name          *string
	Price         *decimal.Decimal
	Description   *string
	ImageURL      *string
	IsRecommended *bool
	DisplayOrder  *int
	IsActive      *bool
}

func (in UpdateCategoryInput) updates() map[string]any {
	out := map[string]any{}
	if in.Name != nil {
		out["name"] = *in.Name
	}
	if in.DisplayOrder != nil {
		out["display_order"] = *in.DisplayOrder
	}
	if in.IsActive != nil {
		out["is_active"] = *in.IsActive
	}
	return out
}

func (in UpdateDrinkInput) updates() map[string]any {
	out := map[string]any{}
	if in.CategoryID != nil {
		out["category_id"] = *in.CategoryID
	}
	if in.Name != nil {
		out["name"] = *in.Name
	}
	if in.Price != nil {
		out["price"] = *in.Price
	}
	if in.Description != nil {
		out["description"] = *in.Description
	}
	if in.ImageURL != nil {
		out["image_url"] = *in.ImageURL
	}
	if in.IsRecommended != nil {
		out["is_recommended"] = *in.IsRecommended
	}
	if in.DisplayOrder != nil {
		out["display_order"] = *in.DisplayOrder
	}
	if in.IsActive != nil {
		out["is_active"] = *in.IsActive
	}
	return out
}

func toCategoryDTO(c models.DrinkCategory) CategoryDTO {
	return CategoryDTO{
		ID:           c.ID,
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toDrinkDTO(d models.Drink) DrinkDTO {
	return DrinkDTO{
		ID:            d.ID,
		CategoryID:    d.CategoryID,
		Name:          d.Name,
		Price:         d.Price,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		IsRecommended: d.IsRecommended,
		DisplayOrder:  d.DisplayOrder,
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
