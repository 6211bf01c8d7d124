package controllers

import (
	"net/http"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/api/validators"
	"github.com/angelmondragon/castmenu-backend/internal/badges"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

type createBadgeRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=50"`
	Color        string `json:"color" validate:"required,max=32"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

type updateBadgeRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=50"`
	Color        *string `json:"color" validate:"omitempty,min=1,max=32"`
	DisplayOrder *int    `json:"display_order" validate:"omitempty,gte=0"`
}

func BadgeList(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "badge")
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminBadgeCreate(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "badge")
	}
	return decodeAndRun(logg, http.StatusCreated, func(r *http.Request, body createBadgeRequest) (*badges.BadgeDTO, error) {
		return svc.Create(r.Context(), badges.CreateBadgeInput{
			Name:         body.Name,
			Color:        body.Color,
			DisplayOrder: body.DisplayOrder,
		})
	})
}

func AdminBadgeUpdate(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "badge")
			return
		}
		id, err := validators.ParseUUIDParam(r, "badgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateBadgeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		badge, err := svc.Update(r.Context(), id, badges.UpdateBadgeInput{
			Name:         body.Name,
			Color:        body.Color,
			DisplayOrder: body.DisplayOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, badge)
	}
}

// AdminBadgeDelete removes the badge and, through the cascade, every assignment of it.
func AdminBadgeDelete(svc badges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "badge")
			return
		}
		id, err := validators.ParseUUIDParam(r, "badgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "badge deleted")
	}
}
