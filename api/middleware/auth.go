package middleware

import (
	"net/http"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	pkgAuth "github.com/angelmondragon/castmenu-backend/pkg/auth"
	"github.com/angelmondragon/castmenu-backend/pkg/auth/session"
	"github.com/angelmondragon/castmenu-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

const bearerChallenge = `Bearer realm="castmenu-admin"`

// Auth admits requests carrying a valid access token whose session is still
// live, and seeds the context with the admin id and session id.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, sessions)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
					w.Header().Set("WWW-Authenticate", bearerChallenge+`, error="invalid_token"`)
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			adminID := claims.AdminID.String()
			ctx := WithAccessID(WithAdminID(r.Context(), adminID), claims.ID)
			ctx = logg.WithAdminID(ctx, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	raw, err := pkgAuth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}
	live, err := sessions.HasSession(r.Context(), claims.ID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked or expired")
	}
	return claims, nil
}
