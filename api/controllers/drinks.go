package controllers

import (
	"net/http"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/api/validators"
	"github.com/angelmondragon/castmenu-backend/internal/drinks"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createCategoryRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=50"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
	IsActive     *bool  `json:"is_active"`
}

type updateCategoryRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=50"`
	DisplayOrder *int    `json:"display_order" validate:"omitempty,gte=0"`
	IsActive     *bool   `json:"is_active"`
}

type createDrinkRequest struct {
	CategoryID    uuid.UUID       `json:"category_id" validate:"required"`
	Name          string          `json:"name" validate:"required,notblank,max=100"`
	Price         decimal.Decimal `json:"price"`
	Description   *string         `json:"description" validate:"omitempty,max=1000"`
	ImageURL      *string         `json:"image_url" validate:"omitempty,max=2048"`
	IsRecommended bool            `json:"is_recommended"`
	DisplayOrder  int             `json:"display_order" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

type updateDrinkRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	Name          *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Price         *decimal.Decimal `json:"price"`
	Description   *string          `json:"description" validate:"omitempty,max=1000"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,max=2048"`
	IsRecommended *bool            `json:"is_recommended"`
	DisplayOrder  *int             `json:"display_order" validate:"omitempty,gte=0"`
	IsActive      *bool            `json:"is_active"`
}

// DrinkMenu serves active categories with their active drinks.
func DrinkMenu(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		menu, err := svc.Menu(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menu)
	}
}

func AdminCategoryList(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		list, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminCategoryCreate(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), drinks.CreateCategoryInput{
			Name:         body.Name,
			DisplayOrder: body.DisplayOrder,
			IsActive:     body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func AdminCategoryUpdate(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		id, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.UpdateCategory(r.Context(), id, drinks.UpdateCategoryInput{
			Name:         body.Name,
			DisplayOrder: body.DisplayOrder,
			IsActive:     body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// AdminCategoryDelete refuses to delete a category that still holds drinks.
func AdminCategoryDelete(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		id, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "category deleted")
	}
}

func AdminDrinkList(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListDrinks(r.Context(), drinks.ListDrinksParams{
			CategoryID:      categoryID,
			IncludeInactive: true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminDrinkCreate(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		var body createDrinkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		drink, err := svc.CreateDrink(r.Context(), drinks.CreateDrinkInput{
			CategoryID:    body.CategoryID,
			Name:          body.Name,
			Price:         body.Price,
			Description:   body.Description,
			ImageURL:      body.ImageURL,
			IsRecommended: body.IsRecommended,
			DisplayOrder:  body.DisplayOrder,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, drink)
	}
}

func AdminDrinkUpdate(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		id, err := validators.ParseUUIDParam(r, "drinkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateDrinkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		drink, err := svc.UpdateDrink(r.Context(), id, drinks.UpdateDrinkInput{
			CategoryID:    body.CategoryID,
			Name:          body.Name,
			Price:         body.Price,
			Description:   body.Description,
			ImageURL:      body.ImageURL,
			IsRecommended: body.IsRecommended,
			DisplayOrder:  body.DisplayOrder,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, drink)
	}
}

func AdminDrinkDelete(svc drinks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "drink")
			return
		}
		id, err := validators.ParseUUIDParam(r, "drinkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteDrink(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "drink deleted")
	}
}
