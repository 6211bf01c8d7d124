package models

import (
	"time"

	"github.com/google/uuid"
)

// Cast is a staff profile shown on the public menu. Deletion only clears IsActive.
type Cast struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Age         int       `gorm:"column:age;not null"`
	Height      int       `gorm:"column:height;not null"`
	Hobby       *string   `gorm:"column:hobby"`
	Description *string   `gorm:"column:description"`
	AvatarURL   *string   `gorm:"column:avatar_url"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CastStats holds the radar chart values for a cast, one row per cast.
type CastStats struct {
	CastID           uuid.UUID `gorm:"column:cast_id;type:uuid;primaryKey"`
	Looks            int       `gorm:"column:looks;not null"`
	Talk             int       `gorm:"column:talk;not null"`
	AlcoholTolerance int       `gorm:"column:alcohol_tolerance;not null"`
	Intelligence     int       `gorm:"column:intelligence;not null"`
	Energy           int       `gorm:"column:energy;not null"`
	CustomStatName   *string   `gorm:"column:custom_stat_name"`
	CustomStatValue  *int      `gorm:"column:custom_stat_value"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CastStats) TableName() string { return "cast_stats" }

// CastPhoto is one entry of a cast's ordered gallery.
type CastPhoto struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CastID     uuid.UUID `gorm:"column:cast_id;type:uuid;not null"`
	PhotoURL   string    `gorm:"column:photo_url;not null"`
	OrderIndex int       `gorm:"column:order_index;not null;default:0"`
	IsMain     bool      `gorm:"column:is_main;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
