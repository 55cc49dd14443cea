package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SesionAbierta = "open"
	SesionCerrada = "closed"
)

// Difference classification of a closed session.
const (
	DiferenciaExacto   = "exacto"
	DiferenciaFaltante = "faltante"
	DiferenciaSobrante = "sobrante"
)

// Counting modes recorded at close.
const (
	ConteoManual         = "manual"
	ConteoDenominaciones = "denominated"
)

// CashSession represents one till period of a business, from open to close.
// At most one row per business may have Status "open"; the partial unique index
// uq_cash_sessions_open_business enforces it.
//
// The totals columns are a frozen snapshot written at close. While the session
// is open they stay at zero and live totals are computed on read.
type CashSession struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BusinessID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpenedBy    uuid.UUID       `gorm:"type:uuid;not null"`
	ClosedBy    *uuid.UUID      `gorm:"type:uuid"`
	InitialCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      string          `gorm:"type:varchar(10);not null;default:'open'"`

	CashSales     decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	TransferSales decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	ExpensesTotal decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	ExpectedCash  *decimal.Decimal `gorm:"type:decimal(12,2)"`

	ActualCashCounted *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DifferenceType    *string          `gorm:"type:varchar(10)"`
	CountingMode      *string          `gorm:"type:varchar(12)"`
	ClosingNotes      *string

	OpenedAt time.Time  `gorm:"not null;index"`
	ClosedAt *time.Time

	Expenses      []Expense           `gorm:"foreignKey:SessionID"`
	Denominations []DenominationCount `gorm:"foreignKey:SessionID"`
}

func (CashSession) TableName() string { return "cash_sessions" }

func (s *CashSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *CashSession) IsOpen() bool { return s.Status == SesionAbierta }

// Expense is an immutable cash outflow recorded against an open session.
type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"not null"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (Expense) TableName() string { return "cash_expenses" }

func (e *Expense) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// DenominationCount is one counted bill or coin face value for a session.
// Unique per (session_id, type, value): recording it again replaces Quantity.
type DenominationCount struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_denomination_session_type_value"`
	Type      string          `gorm:"type:varchar(4);not null;uniqueIndex:uq_denomination_session_type_value"`
	Value     decimal.Decimal `gorm:"type:decimal(12,2);not null;uniqueIndex:uq_denomination_session_type_value"`
	Quantity  int             `gorm:"not null"`
	UpdatedAt time.Time
}

func (DenominationCount) TableName() string { return "cash_denominations" }

func (d *DenominationCount) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
