package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/castmenu-backend/internal/admins"
	pkgAuth "github.com/angelmondragon/castmenu-backend/pkg/auth"
	"github.com/angelmondragon/castmenu-backend/pkg/auth/session"
	"github.com/angelmondragon/castmenu-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/google/uuid"
)

const invalidSessionMessage = "invalid or expired session"

// Service runs the admin session lifecycle.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error)
}

type adminAccounts interface {
	Authenticate(ctx context.Context, identifier, password string) (*admins.AdminDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*admins.AdminDTO, error)
}

type sessionManager interface {
	Start(ctx context.Context, adminID uuid.UUID) (session.Issued, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Issued, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Admins         adminAccounts
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

type service struct {
	admins  adminAccounts
	session sessionManager
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Admins == nil {
		return nil, fmt.Errorf("admin service is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		admins:  params.Admins,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		now:     time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	admin, err := s.admins.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}
	issued, err := s.session.Start(ctx, admin.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return s.respond(admin, issued)
}

// Refresh rotates the session named by the access token's jti. The admin must
// still exist and be active.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidSessionMessage)
	}

	issued, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if issued.AdminID != claims.AdminID {
		_ = s.session.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
	}

	admin, err := s.admins.Get(ctx, issued.AdminID)
	if err != nil || !admin.IsActive {
		_ = s.session.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidSessionMessage)
	}
	return s.respond(admin, issued)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, adminID uuid.UUID) (*admins.AdminDTO, error) {
	return s.admins.Get(ctx, adminID)
}

func (s *service) respond(admin *admins.AdminDTO, issued session.Issued) (*TokenResponse, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		AdminID:  admin.ID,
		Username: admin.Username,
		JTI:      issued.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken:  token,
		RefreshToken: issued.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwtCfg.AccessTokenTTL().Seconds()),
		Admin:        admin,
	}, nil
}
