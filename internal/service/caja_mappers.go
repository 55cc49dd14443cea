package service

import (
	"time"

	"cajaflow/internal/dto"
	"cajaflow/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sessionToResponse(s *model.CashSession, t Totals) dto.CashSessionResponse {
	resp := dto.CashSessionResponse{
		ID:                   s.ID.String(),
		BusinessID:           s.BusinessID.String(),
		OpenedBy:             s.OpenedBy.String(),
		Status:               s.Status,
		InitialCash:          s.InitialCash,
		CurrentCashSales:     t.CashSales,
		CurrentTransferSales: t.TransferSales,
		CurrentExpenses:      t.ExpensesTotal,
		ExpectedCash:         ExpectedCash(s.InitialCash, t),
		TotalsAsOf:           formatTime(t.AsOf),
		ActualCashCounted:    s.ActualCashCounted,
		Difference:           s.Difference,
		DifferenceType:       s.DifferenceType,
		CountingMode:         s.CountingMode,
		ClosingNotes:         s.ClosingNotes,
		OpenedAt:             formatTime(s.OpenedAt),
	}
	if s.ExpectedCash != nil {
		resp.ExpectedCash = *s.ExpectedCash
	}
	if s.ClosedBy != nil {
		v := s.ClosedBy.String()
		resp.ClosedBy = &v
	}
	if s.ClosedAt != nil {
		v := formatTime(*s.ClosedAt)
		resp.ClosedAt = &v
	}
	return resp
}

func expenseToResponse(e *model.Expense) dto.ExpenseResponse {
	return dto.ExpenseResponse{
		ID:          e.ID.String(),
		SessionID:   e.SessionID.String(),
		Amount:      e.Amount,
		Description: e.Description,
		CreatedBy:   e.CreatedBy.String(),
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

func expensesToResponse(gastos []model.Expense) []dto.ExpenseResponse {
	out := make([]dto.ExpenseResponse, 0, len(gastos))
	for i := range gastos {
		out = append(out, expenseToResponse(&gastos[i]))
	}
	return out
}

func ledgerToResponse(sessionID uuid.UUID, rows []model.DenominationCount) dto.DenominationLedgerResponse {
	out := dto.DenominationLedgerResponse{
		SessionID: sessionID.String(),
		Rows:      make([]dto.DenominationRow, 0, len(rows)),
		Subtotal:  LedgerSubtotal(rows),
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, dto.DenominationRow{
			Type:     r.Type,
			Value:    r.Value,
			Quantity: r.Quantity,
			Subtotal: r.Value.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
