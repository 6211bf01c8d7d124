package controllers

import (
	"net/http"

	"github.com/angelmondragon/castmenu-backend/api/middleware"
	"github.com/angelmondragon/castmenu-backend/api/responses"
	"github.com/angelmondragon/castmenu-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

// AdminAuthLogin exchanges credentials for an access and refresh token pair.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return decodeAndRun(logg, http.StatusOK, func(r *http.Request, req auth.LoginRequest) (*auth.TokenResponse, error) {
		return svc.Login(r.Context(), req)
	})
}

// AdminAuthRefresh rotates the session behind a possibly expired access token.
func AdminAuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return decodeAndRun(logg, http.StatusOK, func(r *http.Request, req auth.RefreshRequest) (*auth.TokenResponse, error) {
		return svc.Refresh(r.Context(), req)
	})
}

// AdminAuthLogout revokes the session the caller authenticated with.
func AdminAuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}
		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "logged out")
	}
}

func AdminAuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := actorID(r)
		if id == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
			return
		}
		admin, err := svc.Me(r.Context(), *id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, admin)
	}
}
