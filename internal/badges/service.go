package badges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the badge catalog.
type Service interface {
	List(ctx context.Context) ([]BadgeDTO, error)
	Create(ctx context.Context, input CreateBadgeInput) (*BadgeDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateBadgeInput) (*BadgeDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("badge repository required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

func (s *service) List(ctx context.Context) ([]BadgeDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list badges")
	}
	out := make([]BadgeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateBadgeInput) (*BadgeDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge name is required")
	}
	now := s.now()
	badge := models.Badge{
		ID:           uuid.New(),
		Name:         name,
		Color:        input.Color,
		DisplayOrder: input.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &badge); err != nil {
		return nil, db.ClassifyWrite(err, "create badge")
	}
	dto := toDTO(badge)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateBadgeInput) (*BadgeDTO, error) {
	updates := input.updates()
	if name, ok := updates["name"].(string); ok && strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge name is required")
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		affected, err := s.repo.Update(ctx, id, updates)
		if err != nil {
			return nil, db.ClassifyWrite(err, "update badge")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
	}

	badge, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load badge")
	}
	dto := toDTO(*badge)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete badge")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
	}
	return nil
}
