package service

import (
	"context"
	"fmt"
	"time"

	"cajaflow/internal/model"
	"cajaflow/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals are the running figures of a session as of an instant.
type Totals struct {
	CashSales     decimal.Decimal
	TransferSales decimal.Decimal
	ExpensesTotal decimal.Decimal
	AsOf          time.Time
}

// TransactionAggregator derives session totals from the payments and expenses
// recorded so far. It never writes and holds no state, so polling clients may
// call it as often and as concurrently as they like. CloseSession uses the
// same method inside its transaction, so the figure shown while open and the
// one used to close follow identical filter rules.
type TransactionAggregator struct {
	caja  repository.CajaRepository
	pagos repository.PagoRepository
}

func NewTransactionAggregator(caja repository.CajaRepository, pagos repository.PagoRepository) *TransactionAggregator {
	return &TransactionAggregator{caja: caja, pagos: pagos}
}

// RunningTotals sums payments with created_at in [opened_at, asOf] and every
// expense of the session. tx may be nil.
func (a *TransactionAggregator) RunningTotals(ctx context.Context, tx *gorm.DB, s *model.CashSession, asOf time.Time) (Totals, error) {
	if asOf.Before(s.OpenedAt) {
		asOf = s.OpenedAt
	}
	totals := Totals{
		CashSales:     decimal.Zero,
		TransferSales: decimal.Zero,
		ExpensesTotal: decimal.Zero,
		AsOf:          asOf,
	}

	pagos, err := a.pagos.ListCompleted(ctx, tx, s.BusinessID, s.OpenedAt, asOf)
	if err != nil {
		return Totals{}, fmt.Errorf("sumar pagos de la sesión %s: %w", s.ID, err)
	}
	for _, p := range pagos {
		switch p.PaymentMethod {
		case model.MetodoEfectivo:
			totals.CashSales = totals.CashSales.Add(p.Amount)
		case model.MetodoTransferencia:
			totals.TransferSales = totals.TransferSales.Add(p.Amount)
		}
	}

	gastos, err := a.caja.ListExpenses(ctx, tx, s.ID)
	if err != nil {
		return Totals{}, fmt.Errorf("sumar gastos de la sesión %s: %w", s.ID, err)
	}
	for _, g := range gastos {
		totals.ExpensesTotal = totals.ExpensesTotal.Add(g.Amount)
	}

	totals.CashSales = totals.CashSales.Round(2)
	totals.TransferSales = totals.TransferSales.Round(2)
	totals.ExpensesTotal = totals.ExpensesTotal.Round(2)
	return totals, nil
}

// SessionTotals returns live totals for an open session and the frozen close
// snapshot for a closed one.
func (a *TransactionAggregator) SessionTotals(ctx context.Context, s *model.CashSession, now time.Time) (Totals, error) {
	if s.IsOpen() {
		return a.RunningTotals(ctx, nil, s, now)
	}
	return frozenTotals(s), nil
}

func frozenTotals(s *model.CashSession) Totals {
	asOf := s.OpenedAt
	if s.ClosedAt != nil {
		asOf = *s.ClosedAt
	}
	return Totals{
		CashSales:     s.CashSales,
		TransferSales: s.TransferSales,
		ExpensesTotal: s.ExpensesTotal,
		AsOf:          asOf,
	}
}
