package repository

import (
	"context"
	"fmt"
	"time"

	"cajaflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CajaRepository persists cash sessions, their expenses and their denomination
// ledger. Every method accepting a tx runs on it when non-nil, so the service
// can compose several calls into one transaction.
type CajaRepository interface {
	CreateSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error
	FindSessionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
	// LockSession reads the session row under FOR UPDATE (exclusive) or
	// FOR SHARE. Must be called inside a transaction.
	LockSession(ctx context.Context, tx *gorm.DB, id uuid.UUID, exclusive bool) (*model.CashSession, error)
	// FindOpenSession returns nil, nil when the business has no open session.
	FindOpenSession(ctx context.Context, businessID uuid.UUID) (*model.CashSession, error)
	CloseSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error
	ListSessionsOpenedBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]model.CashSession, error)
	ListSessions(ctx context.Context, businessID uuid.UUID, page, limit int) ([]model.CashSession, int64, error)

	CreateExpense(ctx context.Context, tx *gorm.DB, e *model.Expense) error
	ListExpenses(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]model.Expense, error)

	UpsertDenomination(ctx context.Context, tx *gorm.DB, d *model.DenominationCount) error
	ListDenominations(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]model.DenominationCount, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error {
	err := conn(r.db, tx).WithContext(ctx).Create(s).Error
	if isUniqueViolation(err) {
		return ErrOpenSessionExists
	}
	return err
}

func (r *cajaRepo) FindSessionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := conn(r.db, tx).WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *cajaRepo) LockSession(ctx context.Context, tx *gorm.DB, id uuid.UUID, exclusive bool) (*model.CashSession, error) {
	strength := "SHARE"
	if exclusive {
		strength = "UPDATE"
	}
	var s model.CashSession
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindOpenSession(ctx context.Context, businessID uuid.UUID) (*model.CashSession, error) {
	var sessions []model.CashSession
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, model.SesionAbierta).
		Limit(1).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// CloseSession writes the final snapshot. The update is conditional on the row
// still being open so a racing second close can never overwrite the first.
func (r *cajaRepo) CloseSession(ctx context.Context, tx *gorm.DB, s *model.CashSession) error {
	res := conn(r.db, tx).WithContext(ctx).
		Model(&model.CashSession{}).
		Where("id = ? AND status = ?", s.ID, model.SesionAbierta).
		Updates(map[string]interface{}{
			"status":              model.SesionCerrada,
			"closed_by":           s.ClosedBy,
			"closed_at":           s.ClosedAt,
			"cash_sales":          s.CashSales,
			"transfer_sales":      s.TransferSales,
			"expenses_total":      s.ExpensesTotal,
			"expected_cash":       s.ExpectedCash,
			"actual_cash_counted": s.ActualCashCounted,
			"difference":          s.Difference,
			"difference_type":     s.DifferenceType,
			"counting_mode":       s.CountingMode,
			"closing_notes":       s.ClosingNotes,
		})
	if res.Error != nil {
		return fmt.Errorf("cerrar sesión %s: %w", s.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotOpen
	}
	s.Status = model.SesionCerrada
	return nil
}

func (r *cajaRepo) ListSessionsOpenedBetween(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]model.CashSession, error) {
	var sessions []model.CashSession
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND opened_at >= ? AND opened_at < ?", businessID, from, to).
		Order("opened_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *cajaRepo) ListSessions(ctx context.Context, businessID uuid.UUID, page, limit int) ([]model.CashSession, int64, error) {
	var sessions []model.CashSession
	var total int64

	q := r.db.WithContext(ctx).Model(&model.CashSession{}).Where("business_id = ?", businessID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *cajaRepo) CreateExpense(ctx context.Context, tx *gorm.DB, e *model.Expense) error {
	return conn(r.db, tx).WithContext(ctx).Create(e).Error
}

func (r *cajaRepo) ListExpenses(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]model.Expense, error) {
	var expenses []model.Expense
	err := conn(r.db, tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&expenses).Error
	return expenses, err
}

// UpsertDenomination inserts the count or replaces the quantity of an existing
// (session, type, value) row.
func (r *cajaRepo) UpsertDenomination(ctx context.Context, tx *gorm.DB, d *model.DenominationCount) error {
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "type"}, {Name: "value"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(d).Error
}

func (r *cajaRepo) ListDenominations(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]model.DenominationCount, error) {
	var rows []model.DenominationCount
	err := conn(r.db, tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("type ASC, value DESC").
		Find(&rows).Error
	return rows, err
}
