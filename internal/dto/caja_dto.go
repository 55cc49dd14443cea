package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	BusinessID  string          `json:"business_id"  validate:"required,uuid"`
	InitialCash decimal.Decimal `json:"initial_cash" validate:"min=0"`
}

type AddExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,max=255"`
}

type DenominationRequest struct {
	Type     string          `json:"type"     validate:"required,oneof=bill coin"`
	Value    decimal.Decimal `json:"value"    validate:"required,gt=0"`
	Quantity int             `json:"quantity" validate:"min=0"`
}

// CountedCash is the wire form of the counted-cash union:
//
//	{"mode":"manual","amount":"83.00"}
//	{"mode":"denominated","denominations":[{"type":"bill","value":"20","quantity":2}]}
//
// In denominated mode the figure is derived from the session's ledger. An
// amount sent alongside is optional and must equal the ledger subtotal, or the
// close fails with an integrity mismatch.
type CountedCash struct {
	Mode          string                `json:"mode"                    validate:"required,oneof=manual denominated"`
	Amount        *decimal.Decimal      `json:"amount,omitempty"`
	Denominations []DenominationRequest `json:"denominations,omitempty" validate:"dive"`
}

type CloseSessionRequest struct {
	CountedCash  CountedCash `json:"counted_cash"  validate:"required"`
	ClosingNotes *string     `json:"closing_notes" validate:"omitempty,max=1000"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RunningTotals struct {
	CashSales     decimal.Decimal `json:"cash_sales"`
	TransferSales decimal.Decimal `json:"transfer_sales"`
	ExpensesTotal decimal.Decimal `json:"expenses_total"`
	AsOf          string          `json:"as_of"`
}

type CashSessionResponse struct {
	ID         string  `json:"id"`
	BusinessID string  `json:"business_id"`
	OpenedBy   string  `json:"opened_by"`
	ClosedBy   *string `json:"closed_by"`
	Status     string  `json:"status"`

	InitialCash          decimal.Decimal `json:"initial_cash"`
	CurrentCashSales     decimal.Decimal `json:"current_cash_sales"`
	CurrentTransferSales decimal.Decimal `json:"current_transfer_sales"`
	CurrentExpenses      decimal.Decimal `json:"current_expenses"`
	ExpectedCash         decimal.Decimal `json:"expected_cash"`
	TotalsAsOf           string          `json:"totals_as_of"`

	ActualCashCounted *decimal.Decimal `json:"actual_cash_counted"`
	Difference        *decimal.Decimal `json:"difference"`
	DifferenceType    *string          `json:"difference_type"`
	CountingMode      *string          `json:"counting_mode"`
	ClosingNotes      *string          `json:"closing_notes"`

	OpenedAt string  `json:"opened_at"`
	ClosedAt *string `json:"closed_at"`
}

type ExpenseResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
}

type DenominationRow struct {
	Type     string          `json:"type"`
	Value    decimal.Decimal `json:"value"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type DenominationLedgerResponse struct {
	SessionID string            `json:"session_id"`
	Rows      []DenominationRow `json:"rows"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

// CloseResult is returned once a session has been reconciled and closed.
type CloseResult struct {
	Session           CashSessionResponse `json:"session"`
	ExpectedCash      decimal.Decimal     `json:"expected_cash"`
	ActualCashCounted decimal.Decimal     `json:"actual_cash_counted"`
	Difference        decimal.Decimal     `json:"difference"`
	DifferenceType    string              `json:"difference_type"`
	Message           string              `json:"message"`
}

type SessionDetailResponse struct {
	Session       CashSessionResponse        `json:"session"`
	Expenses      []ExpenseResponse          `json:"expenses"`
	Denominations DenominationLedgerResponse `json:"denominations"`
}

type SessionHistoryResponse struct {
	Data  []CashSessionResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

const (
	EventSessionOpened        = "session.opened"
	EventExpenseAdded         = "expense.added"
	EventDenominationRecorded = "denomination.recorded"
	EventSessionClosed        = "session.closed"
)

// CajaEvent is published after every committed change to a business's till.
type CajaEvent struct {
	Type       string `json:"type"`
	BusinessID string `json:"business_id"`
	SessionID  string `json:"session_id"`
	At         string `json:"at"`
}
