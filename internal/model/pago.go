package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MetodoEfectivo      = "cash"
	MetodoTransferencia = "transfer"

	PagoCompletado = "completed"
)

// Payment is owned by the invoicing subsystem. This service only reads it:
// there is no write path for payments anywhere in this repository except the
// demo seed command.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BusinessID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_business_created,priority:1"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(20);not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time       `gorm:"not null;index:idx_payments_business_created,priority:2"`
}

func (Payment) TableName() string { return "payments" }
