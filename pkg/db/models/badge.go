package models

import (
	"time"

	"github.com/google/uuid"
)

// Badge is a catalog label such as "New" or "No.1".
type Badge struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null;uniqueIndex"`
	Color        string    `gorm:"column:color;not null"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CastBadge assigns a badge to a cast. (cast_id, badge_id) is the primary key.
type CastBadge struct {
	CastID     uuid.UUID  `gorm:"column:cast_id;type:uuid;primaryKey"`
	BadgeID    uuid.UUID  `gorm:"column:badge_id;type:uuid;primaryKey"`
	AssignedAt time.Time  `gorm:"column:assigned_at;not null"`
	AssignedBy *uuid.UUID `gorm:"column:assigned_by;type:uuid"`
}
