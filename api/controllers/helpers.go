package controllers

import (
	"net/http"

	"github.com/angelmondragon/castmenu-backend/api/middleware"
	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/api/validators"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/google/uuid"
)

// actorID returns the authenticated admin, or nil on public routes.
func actorID(r *http.Request) *uuid.UUID {
	raw := middleware.AdminIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// unavailable answers 503 when a handler was built without its service, as
// image routes are when object storage is not configured.
func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, name+" service unavailable"))
}

// decodeAndRun decodes a JSON body into Req, hands it to call and writes the
// result with status.
func decodeAndRun[Req, Res any](logg *logger.Logger, status int, call func(r *http.Request, req Req) (Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := call(r, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, res)
	}
}

func unavailableHandler(logg *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unavailable(w, r, logg, name)
	}
}
