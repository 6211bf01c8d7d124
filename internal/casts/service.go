package casts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/pagination"
	"github.com/angelmondragon/castmenu-backend/pkg/sqlbuild"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const defaultFanOut = 8

// Service exposes cast catalog operations.
type Service interface {
	List(ctx context.Context, params SearchParams) (*CastListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*CastDTO, error)
	Create(ctx context.Context, actor *uuid.UUID, input CreateCastInput) (*CastDTO, error)
	Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, input UpdateCastInput) (*CastDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AssignBadge(ctx context.Context, actor *uuid.UUID, castID, badgeID uuid.UUID) error
	RemoveBadge(ctx context.Context, castID, badgeID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	fanOut int
	now    func() time.Time
}

// NewService constructs a cast service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cast repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:   repo,
		tx:     dbClient,
		fanOut: defaultFanOut,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

// List runs the composed listing and count queries, then hydrates every row.
func (s *service) List(ctx context.Context, params SearchParams) (*CastListResult, error) {
	rows, total, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search casts")
	}
	params = params.withDefaults()

	items := make([]CastDTO, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i := range rows {
		i := i
		g.Go(func() error {
			dto, err := hydrate(gctx, s.repo, &rows[i])
			if err != nil {
				return err
			}
			items[i] = dto
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cast details")
	}

	return &CastListResult{
		Items:      items,
		Total:      int(total),
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.TotalPages(int(total), params.Limit),
	}, nil
}

// Get returns an active cast with its photos, stats and badges.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*CastDTO, error) {
	cast, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto, err := hydrate(ctx, s.repo, cast)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cast details")
	}
	return &dto, nil
}

// Create inserts the cast with its stats, gallery and badges in one transaction.
func (s *service) Create(ctx context.Context, actor *uuid.UUID, input CreateCastInput) (*CastDTO, error) {
	now := s.now()
	cast := &models.Cast{
		ID:          uuid.New(),
		Name:        input.Name,
		Age:         input.Age,
		Height:      input.Height,
		Hobby:       input.Hobby,
		Description: input.Description,
		AvatarURL:   input.AvatarURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stats := newStats(cast.ID, input.Stats, now)
	badgeIDs := dedupe(input.BadgeIDs)

	var out CastDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, cast); err != nil {
			return classify(err, "create cast")
		}
		if err := repo.CreateStats(ctx, stats); err != nil {
			return classify(err, "create cast stats")
		}
		if err := repo.ReplacePhotos(ctx, cast.ID, input.Photos, now); err != nil {
			return classify(err, "create cast photos")
		}
		if err := ensureBadgesExist(ctx, repo, badgeIDs); err != nil {
			return err
		}
		if err := repo.ReplaceBadges(ctx, cast.ID, badgeIDs, actor, now); err != nil {
			return classify(err, "assign cast badges")
		}
		created, err := repo.FindByID(ctx, cast.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cast")
		}
		out, err = hydrate(ctx, repo, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a composite update: entity, stats, photos, badges, in that order,
// inside one transaction. Any failure rolls every step back.
func (s *service) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, input UpdateCastInput) (*CastDTO, error) {
	if st := input.Stats; st != nil && st.ClearCustomStat && (st.CustomStatName != nil || st.CustomStatValue != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom stat cannot be set and cleared at once").
			OnField("stats.clear_custom_stat")
	}
	now := s.now()

	var out CastDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cast, err := loadActive(ctx, repo, id)
		if err != nil {
			return err
		}
		if input.ExpectedUpdatedAt != nil && !cast.UpdatedAt.Equal(*input.ExpectedUpdatedAt) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cast was modified by another request").
				WithDetails(map[string]any{"updated_at": cast.UpdatedAt})
		}

		if input.Entity != nil {
			if assigns := input.Entity.assignments(); len(assigns) > 0 {
				assigns = append(assigns, sqlbuild.Assignment{Column: "updated_at", Value: now})
				if _, err := repo.Patch(ctx, "casts", assigns, "id", id); err != nil {
					return classify(err, "update cast")
				}
			}
		}

		if input.Stats != nil {
			if err := patchStats(ctx, repo, id, input.Stats, now); err != nil {
				return err
			}
		}

		if input.Photos != nil {
			if err := repo.ReplacePhotos(ctx, id, *input.Photos, now); err != nil {
				return classify(err, "replace cast photos")
			}
		}

		if input.BadgeIDs != nil {
			badgeIDs := dedupe(*input.BadgeIDs)
			if err := ensureBadgesExist(ctx, repo, badgeIDs); err != nil {
				return err
			}
			if err := repo.ReplaceBadges(ctx, id, badgeIDs, actor, now); err != nil {
				return classify(err, "replace cast badges")
			}
		}

		updated, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cast")
		}
		out, err = hydrate(ctx, repo, updated)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cast details")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete soft deletes a cast and drops its badge assignments. Photos and stats stay.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadActive(ctx, repo, id); err != nil {
			return err
		}
		assigns := []sqlbuild.Assignment{
			{Column: "is_active", Value: false},
			{Column: "updated_at", Value: now},
		}
		if _, err := repo.Patch(ctx, "casts", assigns, "id", id); err != nil {
			return classify(err, "deactivate cast")
		}
		if err := repo.ClearBadges(ctx, id); err != nil {
			return classify(err, "clear cast badges")
		}
		return nil
	})
}

// AssignBadge adds one badge to an active cast. Assigning it twice is a conflict.
func (s *service) AssignBadge(ctx context.Context, actor *uuid.UUID, castID, badgeID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadActive(ctx, repo, castID); err != nil {
			return err
		}
		count, err := repo.CountBadges(ctx, []uuid.UUID{badgeID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load badge")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
		assigned, err := repo.IsAssigned(ctx, castID, badgeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check badge assignment")
		}
		if assigned {
			return pkgerrors.New(pkgerrors.CodeConflict, "badge already assigned to cast")
		}
		row := &models.CastBadge{CastID: castID, BadgeID: badgeID, AssignedAt: s.now(), AssignedBy: actor}
		if err := repo.Assign(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "badge already assigned to cast")
			}
			return classify(err, "assign badge")
		}
		return nil
	})
}

// RemoveBadge drops one assignment from an active cast.
func (s *service) RemoveBadge(ctx context.Context, castID, badgeID uuid.UUID) error {
	if _, err := loadActive(ctx, s.repo, castID); err != nil {
		return err
	}
	removed, err := s.repo.Unassign(ctx, castID, badgeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove badge")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "badge not assigned to cast")
	}
	return nil
}

func loadActive(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Cast, error) {
	cast, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cast not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cast")
	}
	if !cast.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cast not found")
	}
	return cast, nil
}

func hydrate(ctx context.Context, repo *Repository, cast *models.Cast) (CastDTO, error) {
	photos, err := repo.Photos(ctx, cast.ID)
	if err != nil {
		return CastDTO{}, err
	}
	stats, err := repo.Stats(ctx, cast.ID)
	if err != nil {
		return CastDTO{}, err
	}
	badges, err := repo.Badges(ctx, cast.ID)
	if err != nil {
		return CastDTO{}, err
	}
	return toCastDTO(cast, stats, photos, badges), nil
}

func patchStats(ctx context.Context, repo *Repository, castID uuid.UUID, patch *StatsPatch, now time.Time) error {
	assigns := patch.assignments()
	if len(assigns) == 0 {
		return nil
	}
	assigns = append(assigns, sqlbuild.Assignment{Column: "updated_at", Value: now})
	affected, err := repo.Patch(ctx, "cast_stats", assigns, "cast_id", castID)
	if err != nil {
		return classify(err, "update cast stats")
	}
	if affected > 0 {
		return nil
	}
	// casts created before stats existed get a default row with the patch applied
	if err := repo.CreateStats(ctx, newStats(castID, patch, now)); err != nil {
		return classify(err, "create cast stats")
	}
	return nil
}

func ensureBadgesExist(ctx context.Context, repo *Repository, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := repo.CountBadges(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify badges")
	}
	if int(count) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown badge id").
			OnField("badge_ids")
	}
	return nil
}

func newStats(castID uuid.UUID, in *StatsInput, now time.Time) *models.CastStats {
	stats := &models.CastStats{
		CastID:           castID,
		Looks:            defaultStatValue,
		Talk:             defaultStatValue,
		AlcoholTolerance: defaultStatValue,
		Intelligence:     defaultStatValue,
		Energy:           defaultStatValue,
		UpdatedAt:        now,
	}
	if in == nil {
		return stats
	}
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&stats.Looks, in.Looks)
	set(&stats.Talk, in.Talk)
	set(&stats.AlcoholTolerance, in.AlcoholTolerance)
	set(&stats.Intelligence, in.Intelligence)
	set(&stats.Energy, in.Energy)
	stats.CustomStatName = in.CustomStatName
	stats.CustomStatValue = in.CustomStatValue
	return stats
}

func (p *EntityPatch) assignments() []sqlbuild.Assignment {
	var out []sqlbuild.Assignment
	add := func(column string, set bool, value any) {
		if set {
			out = append(out, sqlbuild.Assignment{Column: column, Value: value})
		}
	}
	add("name", p.Name != nil, deref(p.Name))
	add("age", p.Age != nil, deref(p.Age))
	add("height", p.Height != nil, deref(p.Height))
	add("hobby", p.Hobby != nil, deref(p.Hobby))
	add("description", p.Description != nil, deref(p.Description))
	add("avatar_url", p.AvatarURL != nil, deref(p.AvatarURL))
	return out
}

func (p *StatsInput) assignments() []sqlbuild.Assignment {
	var out []sqlbuild.Assignment
	add := func(column string, set bool, value any) {
		if set {
			out = append(out, sqlbuild.Assignment{Column: column, Value: value})
		}
	}
	add("looks", p.Looks != nil, deref(p.Looks))
	add("talk", p.Talk != nil, deref(p.Talk))
	add("alcohol_tolerance", p.AlcoholTolerance != nil, deref(p.AlcoholTolerance))
	add("intelligence", p.Intelligence != nil, deref(p.Intelligence))
	add("energy", p.Energy != nil, deref(p.Energy))
	add("custom_stat_name", p.CustomStatName != nil, deref(p.CustomStatName))
	add("custom_stat_value", p.CustomStatValue != nil, deref(p.CustomStatValue))
	if p.ClearCustomStat {
		out = append(out,
			sqlbuild.Assignment{Column: "custom_stat_name", Value: nil},
			sqlbuild.Assignment{Column: "custom_stat_value", Value: nil},
		)
	}
	return out
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func classify(err error, step string) error {
	return db.ClassifyWrite(err, step)
}
