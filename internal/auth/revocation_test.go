package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/castmenu-backend/api/middleware"
	"github.com/angelmondragon/castmenu-backend/internal/admins"
	"github.com/angelmondragon/castmenu-backend/pkg/auth/session"
	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db/dbtest"
	"github.com/angelmondragon/castmenu-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountChangesEndOpenSessions(t *testing.T) {
	cases := map[string]func(ctx context.Context, svc admins.Service, id uuid.UUID) error{
		"deactivated": func(ctx context.Context, svc admins.Service, id uuid.UUID) error {
			inactive := false
			_, err := svc.Update(ctx, id, admins.UpdateAdminInput{IsActive: &inactive})
			return err
		},
		"password changed": func(ctx context.Context, svc admins.Service, id uuid.UUID) error {
			password := "a-brand-new-password"
			_, err := svc.Update(ctx, id, admins.UpdateAdminInput{Password: &password})
			return err
		},
		"deleted": func(ctx context.Context, svc admins.Service, id uuid.UUID) error {
			return svc.Delete(ctx, id)
		},
	}

	for name, change := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			client, conn := dbtest.Client(t)
			sessions := &memorySessions{byAccess: map[string]session.Issued{}}
			hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
			adminSvc, err := admins.NewService(admins.NewRepository(conn), client, hasher, sessions)
			require.NoError(t, err)
			authSvc, err := NewService(ServiceParams{Admins: adminSvc, SessionManager: sessions, JWTConfig: testJWT})
			require.NoError(t, err)

			_, err = adminSvc.Create(ctx, admins.CreateAdminInput{Email: "keeper@castmenu.test", Username: "keeper", Password: "keeper-password"})
			require.NoError(t, err)
			target, err := adminSvc.Create(ctx, admins.CreateAdminInput{Email: "staff@castmenu.test", Username: "staff", Password: "staff-password"})
			require.NoError(t, err)
			keeper, err := authSvc.Login(ctx, LoginRequest{Identifier: "keeper", Password: "keeper-password"})
			require.NoError(t, err)
			staff, err := authSvc.Login(ctx, LoginRequest{Identifier: "staff", Password: "staff-password"})
			require.NoError(t, err)

			protected := middleware.Auth(testJWT, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			call := func(token string) int {
				req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/admins", nil)
				req.Header.Set("Authorization", "Bearer "+token)
				resp := httptest.NewRecorder()
				protected.ServeHTTP(resp, req)
				return resp.Code
			}
			require.Equal(t, http.StatusNoContent, call(staff.AccessToken))

			require.NoError(t, change(ctx, adminSvc, target.ID))

			assert.Equal(t, http.StatusUnauthorized, call(staff.AccessToken))
			assert.Equal(t, http.StatusNoContent, call(keeper.AccessToken), "other admins stay signed in")
			_, err = authSvc.Refresh(ctx, RefreshRequest{AccessToken: staff.AccessToken, RefreshToken: staff.RefreshToken})
			assert.Error(t, err, "the refresh token died with the session")
		})
	}
}
