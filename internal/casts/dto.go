package casts

import (
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/db/models"
	"github.com/angelmondragon/castmenu-backend/pkg/enums"
	"github.com/angelmondragon/castmenu-backend/pkg/types"
	"github.com/google/uuid"
)

// SearchParams is the validated input of the cast listing.
type SearchParams struct {
	Search    string
	AgeMin    *int
	AgeMax    *int
	HeightMin *int
	HeightMax *int
	Badges    []string
	Page      int
	Limit     int
	SortBy    enums.CastSortField
	SortOrder enums.SortOrder
}

// CastDTO is the public representation of a cast with its owned data.
type CastDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Age         int        `json:"age"`
	Height      int        `json:"height"`
	Hobby       *string    `json:"hobby"`
	Description *string    `json:"description"`
	AvatarURL   *string    `json:"avatar_url"`
	IsActive    bool       `json:"is_active"`
	Stats       StatsDTO   `json:"stats"`
	Photos      []PhotoDTO `json:"photos"`
	Badges      []BadgeDTO `json:"badges"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StatsDTO carries the five fixed axes plus the optional custom one.
type StatsDTO struct {
	Looks            int     `json:"looks"`
	Talk             int     `json:"talk"`
	AlcoholTolerance int     `json:"alcohol_tolerance"`
	Intelligence     int     `json:"intelligence"`
	Energy           int     `json:"energy"`
	CustomStatName   *string `json:"custom_stat_name"`
	CustomStatValue  *int    `json:"custom_stat_value"`
}

type PhotoDTO struct {
	ID         uuid.UUID `json:"id"`
	PhotoURL   string    `json:"photo_url"`
	OrderIndex int       `json:"order_index"`
	IsMain     bool      `json:"is_main"`
}

type BadgeDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	DisplayOrder int       `json:"display_order"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// CastListResult is one page of the listing.
type CastListResult = types.Page[CastDTO]

// StatsInput is the full stats payload used on create. Missing axes default to 50.
type StatsInput struct {
	Looks            *int
	Talk             *int
	AlcoholTolerance *int
	Intelligence     *int
	Energy           *int
	CustomStatName   *string
	CustomStatValue  *int
	// ClearCustomStat sets both custom columns back to NULL on update. It
	// cannot be combined with new custom values.
	ClearCustomStat bool
}

// CreateCastInput holds the validated payload to create a cast.
type CreateCastInput struct {
	Name        string
	Age         int
	Height      int
	Hobby       *string
	Description *string
	AvatarURL   *string
	Stats       *StatsInput
	Photos      []string
	BadgeIDs    []uuid.UUID
}

// EntityPatch lists the cast columns a composite update may touch.
type EntityPatch struct {
	Name        *string
	Age         *int
	Height      *int
	Hobby       *string
	Description *string
	AvatarURL   *string
}

// StatsPatch lists the stats columns a composite update may touch.
type StatsPatch = StatsInput

// UpdateCastInput is a composite update. Nil sections are skipped; a non-nil
// Photos or BadgeIDs slice replaces the whole list, even when empty.
type UpdateCastInput struct {
	Entity   *EntityPatch
	Stats    *StatsPatch
	Photos   *[]string
	BadgeIDs *[]uuid.UUID
	// ExpectedUpdatedAt opts into a compare-and-swap on casts.updated_at.
	ExpectedUpdatedAt *time.Time
}

const defaultStatValue = 50

func toStatsDTO(stats *models.CastStats) StatsDTO {
	if stats == nil {
		return StatsDTO{}
	}
	return StatsDTO{
		Looks:            stats.Looks,
		Talk:             stats.Talk,
		AlcoholTolerance: stats.AlcoholTolerance,
		Intelligence:     stats.Intelligence,
		Energy:           stats.Energy,
		CustomStatName:   stats.CustomStatName,
		CustomStatValue:  stats.CustomStatValue,
	}
}

func toPhotoDTOs(photos []models.CastPhoto) []PhotoDTO {
	out := make([]PhotoDTO, 0, len(photos))
	for _, p := range photos {
		out = append(out, PhotoDTO{ID: p.ID, PhotoURL: p.PhotoURL, OrderIndex: p.OrderIndex, IsMain: p.IsMain})
	}
	return out
}

func toCastDTO(c *models.Cast, stats *models.CastStats, photos []models.CastPhoto, badges []BadgeDTO) CastDTO {
	if badges == nil {
		badges = []BadgeDTO{}
	}
	return CastDTO{
		ID:          c.ID,
		Name:        c.Name,
		Age:         c.Age,
		Height:      c.Height,
		Hobby:       c.Hobby,
		Description: c.Description,
		AvatarURL:   c.AvatarURL,
		IsActive:    c.IsActive,
		Stats:       toStatsDTO(stats),
		Photos:      toPhotoDTOs(photos),
		Badges:      badges,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
