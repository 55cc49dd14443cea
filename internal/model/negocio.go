package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business is the tenant that owns cash sessions. Managed by the dashboard
// subsystem; this service reads it for access checks and report settings.
type Business struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"not null"`
	// Timezone is an IANA zone name used for report day boundaries.
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'"`
	// VarianceTolerance overrides the global exact-close band when set.
	VarianceTolerance *decimal.Decimal `gorm:"type:decimal(12,2)"`
	NotificationEmail *string
	CreatedAt         time.Time
}

func (Business) TableName() string { return "businesses" }

// BusinessMember grants a user access to a business's till.
type BusinessMember struct {
	BusinessID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role       string    `gorm:"type:varchar(20);not null"`
}

func (BusinessMember) TableName() string { return "business_members" }
