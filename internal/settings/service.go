package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/cache"
	"github.com/angelmondragon/castmenu-backend/pkg/db"
	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	allCacheKey   = "settings:all"
	maxNameLength = 64
)

// Service reads and writes shop settings.
type Service interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, values map[string]string) (map[string]string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	cache *cache.JSONCache
	now   func() time.Time
}

func NewService(repo *Repository, dbClient *db.Client, settingsCache *cache.JSONCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:  repo,
		tx:    dbClient,
		cache: settingsCache,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

// All returns every setting keyed by name.
func (s *service) All(ctx context.Context) (map[string]string, error) {
	key := s.cache.Key(allCacheKey)
	cached := map[string]string{}
	if s.cache.Load(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list settings")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	s.cache.Save(ctx, key, out)
	return out, nil
}

// Upsert writes every provided setting in one transaction and returns the full set.
func (s *service) Upsert(ctx context.Context, values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one setting is required")
	}
	names := make([]string, 0, len(values))
	invalid := map[string]string{}
	for name := range values {
		trimmed := strings.TrimSpace(name)
		switch {
		case trimmed == "":
			invalid["name"] = "must not be empty"
		case len(trimmed) > maxNameLength || trimmed != name:
			invalid[name] = "invalid setting name"
		}
		names = append(names, name)
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid settings").WithDetails(invalid)
	}
	sort.Strings(names)

	now := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, name := range names {
			if err := repo.Upsert(ctx, &models.Setting{Name: name, Value: values[name], UpdatedAt: now}); err != nil {
				return db.ClassifyWrite(err, "upsert setting")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, s.cache.Key(allCacheKey))
	return s.All(ctx)
}
