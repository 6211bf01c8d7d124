package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/api/validators"
	"github.com/angelmondragon/castmenu-backend/internal/casts"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/google/uuid"
)

type castStatsBody struct {
	Looks            *int    `json:"looks" validate:"omitempty,gte=1,lte=100"`
	Talk             *int    `json:"talk" validate:"omitempty,gte=1,lte=100"`
	AlcoholTolerance *int    `json:"alcohol_tolerance" validate:"omitempty,gte=1,lte=100"`
	Intelligence     *int    `json:"intelligence" validate:"omitempty,gte=1,lte=100"`
	Energy           *int    `json:"energy" validate:"omitempty,gte=1,lte=100"`
	CustomStatName   *string `json:"custom_stat_name" validate:"omitempty,max=50"`
	CustomStatValue  *int    `json:"custom_stat_value" validate:"omitempty,gte=1,lte=100"`
	ClearCustomStat  bool    `json:"clear_custom_stat"`
}

func (b *castStatsBody) toInput() *casts.StatsInput {
	if b == nil {
		return nil
	}
	return &casts.StatsInput{
		Looks:            b.Looks,
		Talk:             b.Talk,
		AlcoholTolerance: b.AlcoholTolerance,
		Intelligence:     b.Intelligence,
		Energy:           b.Energy,
		CustomStatName:   b.CustomStatName,
		CustomStatValue:  b.CustomStatValue,
		ClearCustomStat:  b.ClearCustomStat,
	}
}

type createCastRequest struct {
	Name        string         `json:"name" validate:"required,notblank,max=100"`
	Age         int            `json:"age" validate:"required"`
	Height      int            `json:"height" validate:"required"`
	Hobby       *string        `json:"hobby" validate:"omitempty,max=200"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	AvatarURL   *string        `json:"avatar_url" validate:"omitempty,max=2048"`
	Stats       *castStatsBody `json:"stats"`
	Photos      []string       `json:"photos" validate:"max=20,dive,required,max=2048"`
	Badges      []uuid.UUID    `json:"badges" validate:"max=50"`
}

type castEntityBody struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Age         *int    `json:"age"`
	Height      *int    `json:"height"`
	Hobby       *string `json:"hobby" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,max=2048"`
}

// updateCastRequest mirrors the composite update: absent sections are left
// alone, present lists replace the stored ones even when empty.
type updateCastRequest struct {
	Entity            *castEntityBody `json:"entity"`
	Stats             *castStatsBody  `json:"stats"`
	Photos            *[]string       `json:"photos" validate:"omitempty,max=20,dive,required,max=2048"`
	Badges            *[]uuid.UUID    `json:"badges" validate:"omitempty,max=50"`
	ExpectedUpdatedAt *time.Time      `json:"expected_updated_at"`
}

func (req updateCastRequest) toInput() casts.UpdateCastInput {
	in := casts.UpdateCastInput{
		Stats:             req.Stats.toInput(),
		Photos:            req.Photos,
		BadgeIDs:          req.Badges,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
	if e := req.Entity; e != nil {
		if e.Name != nil {
			name := validators.SanitizeString(*e.Name, 100)
			e.Name = &name
		}
		in.Entity = &casts.EntityPatch{
			Name:        e.Name,
			Age:         e.Age,
			Height:      e.Height,
			Hobby:       e.Hobby,
			Description: e.Description,
			AvatarURL:   e.AvatarURL,
		}
	}
	return in
}

type assignBadgeRequest struct {
	BadgeID uuid.UUID `json:"badge_id" validate:"required"`
}

// CastList serves the public, filtered and paginated cast listing.
func CastList(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		params, err := validators.ParseCastSearch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CastGet(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		id, err := validators.ParseUUIDParam(r, "castId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cast, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cast)
	}
}

func AdminCastCreate(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		var body createCastRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cast, err := svc.Create(r.Context(), actorID(r), casts.CreateCastInput{
			Name:        validators.SanitizeString(body.Name, 100),
			Age:         body.Age,
			Height:      body.Height,
			Hobby:       body.Hobby,
			Description: body.Description,
			AvatarURL:   body.AvatarURL,
			Stats:       body.Stats.toInput(),
			Photos:      body.Photos,
			BadgeIDs:    body.Badges,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cast)
	}
}

// AdminCastUpdate applies a composite update in one transaction.
func AdminCastUpdate(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		id, err := validators.ParseUUIDParam(r, "castId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCastRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCastID(ctx, id.String())
		}
		cast, err := svc.Update(ctx, actorID(r), id, body.toInput())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cast)
	}
}

func AdminCastDelete(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		id, err := validators.ParseUUIDParam(r, "castId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "cast deleted")
	}
}

func AdminCastAssignBadge(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		castID, err := validators.ParseUUIDParam(r, "castId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assignBadgeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.AssignBadge(r.Context(), actorID(r), castID, body.BadgeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"cast_id":  castID.String(),
			"badge_id": body.BadgeID.String(),
		})
	}
}

func AdminCastRemoveBadge(svc casts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cast")
			return
		}
		castID, err := validators.ParseUUIDParam(r, "castId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		badgeID, err := validators.ParseUUIDParam(r, "badgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveBadge(r.Context(), castID, badgeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "badge removed")
	}
}
