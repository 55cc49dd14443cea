package repository

import (
	"context"
	"time"

	"cajaflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PagoRepository reads payments recorded by the invoicing subsystem.
type PagoRepository interface {
	// ListCompleted returns completed cash and transfer payments of a business
	// with created_at in [from, to], both ends inclusive.
	ListCompleted(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, from, to time.Time) ([]model.Payment, error)
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) ListCompleted(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, from, to time.Time) ([]model.Payment, error) {
	var pagos []model.Payment
	err := conn(r.db, tx).WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, model.PagoCompletado).
		Where("payment_method IN ?", []string{model.MetodoEfectivo, model.MetodoTransferencia}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Find(&pagos).Error
	return pagos, err
}
