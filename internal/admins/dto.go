package admins

import (
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/google/uuid"
)

// AdminDTO never carries the password hash.
type AdminDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateAdminInput struct {
	Email    string
	Username string
	Password string
	IsActive *bool
}

// UpdateAdminInput is a sparse patch. A non-nil Password is re-hashed.
type UpdateAdminInput struct {
	Email    *string
	Username *string
	Password *string
	IsActive *bool
}

func FromModel(a *models.Admin) AdminDTO {
	return AdminDTO{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
