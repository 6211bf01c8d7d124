package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	lastAdminMessage          = "at least one active admin must remain"
)

// Service manages admin accounts. The last active admin can be neither deleted
// nor deactivated.
type Service interface {
	List(ctx context.Context) ([]AdminDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*AdminDTO, error)
	Create(ctx context.Context, input CreateAdminInput) (*AdminDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAdminInput) (*AdminDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, identifier, password string) (*AdminDTO, error)
	Bootstrap(ctx context.Context, cfg config.BootstrapConfig) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	Burn(password string)
}

// SessionRevoker ends every open session of an admin.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, adminID uuid.UUID) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	hasher   passwordHasher
	sessions SessionRevoker
	now      func() time.Time
}

// NewService constructs an admin service. Sessions are revoked whenever an
// admin is deactivated, deleted or given a new password.
func NewService(repo *Repository, dbClient *db.Client, hasher *security.Hasher, sessions SessionRevoker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	return &service{
		repo:     repo,
		tx:       dbClient,
		hasher:   hasher,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

func (s *service) List(ctx context.Context) ([]AdminDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list admins")
	}
	out := make([]AdminDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AdminDTO, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	dto := FromModel(admin)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateAdminInput) (*AdminDTO, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" || username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and username are required")
	}
	if err := security.CheckPolicy(input.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			OnField("password")
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now()
	admin := models.Admin{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     input.IsActive == nil || *input.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &admin); err != nil {
		return nil, db.ClassifyWrite(err, "create admin")
	}
	dto := FromModel(&admin)
	return &dto, nil
}

// Update applies the patch. Deactivating the last active admin is a conflict.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAdminInput) (*AdminDTO, error) {
	updates, err := s.updates(input)
	if err != nil {
		return nil, err
	}

	var out AdminDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		if input.IsActive != nil && !*input.IsActive && current.IsActive {
			if err := guardLastActive(ctx, repo, id); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			updates["updated_at"] = s.now()
			if _, err := repo.Update(ctx, id, updates); err != nil {
				return db.ClassifyWrite(err, "update admin")
			}
		}
		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload admin")
		}
		out = FromModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if input.Password != nil || !out.IsActive {
		if err := s.revokeSessions(ctx, id); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// Delete removes an admin. Removing the last active admin is a conflict and
// leaves the table untouched.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		if current.IsActive {
			if err := guardLastActive(ctx, repo, id); err != nil {
				return err
			}
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete admin")
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.revokeSessions(ctx, id)
}

// revokeSessions runs after commit. On failure the change stays and the
// caller can repeat the request to finish the revocation.
func (s *service) revokeSessions(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke admin sessions")
	}
	return nil
}

// Authenticate checks credentials for an active admin found by email or username
// and records the login time. Every failure reads as invalid credentials.
func (s *service) Authenticate(ctx context.Context, identifier, password string) (*AdminDTO, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	admin, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.Burn(password)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin")
	}

	ok, err := s.hasher.Verify(password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	admin.LastLoginAt = &now
	dto := FromModel(admin)
	return &dto, nil
}

// Bootstrap creates the configured admin when no admin exists yet.
func (s *service) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.Create(ctx, CreateAdminInput{Email: cfg.AdminEmail, Username: cfg.AdminUsername, Password: cfg.AdminPassword}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) updates(input UpdateAdminInput) (map[string]any, error) {
	out := map[string]any{}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must not be empty")
		}
		out["email"] = email
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must not be empty")
		}
		out["username"] = username
	}
	if input.Password != nil {
		if err := security.CheckPolicy(*input.Password); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
				OnField("password")
		}
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		out["password_hash"] = hash
	}
	if input.IsActive != nil {
		out["is_active"] = *input.IsActive
	}
	return out, nil
}

func guardLastActive(ctx context.Context, repo *Repository, removing uuid.UUID) error {
	ids, err := repo.LockActiveIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active admins")
	}
	for _, id := range ids {
		if id != removing {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeConflict, lastAdminMessage)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "admin not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin")
}
