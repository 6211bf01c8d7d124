package badges

import (
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/google/uuid"
)

// BadgeDTO is the catalog representation of a badge.
type BadgeDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateBadgeInput struct {
	Name         string
	Color        string
	DisplayOrder int
}

// UpdateBadgeInput is a sparse patch; nil fields are left untouched.
type UpdateBadgeInput struct {
	Name         *string
	Color        *string
	DisplayOrder *int
}

func (in UpdateBadgeInput) updates() map[string]any {
	out := map[string]any{}
	if in.Name != nil {
		out["name"] = *in.Name
	}
	if in.Color != nil {
		out["color"] = *in.Color
	}
	if in.DisplayOrder != nil {
		out["display_order"] = *in.DisplayOrder
	}
	return out
}

func toDTO(b models.Badge) BadgeDTO {
	return BadgeDTO{
		ID:           b.ID,
		Name:         b.Name,
		Color:        b.Color,
		DisplayOrder: b.DisplayOrder,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
