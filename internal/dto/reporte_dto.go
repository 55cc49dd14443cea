package dto

import "github.com/shopspring/decimal"

// SessionReportRow is the drill-down line for one session inside a report.
type SessionReportRow struct {
	SessionID      string           `json:"session_id"`
	Status         string           `json:"status"`
	OpenedAt       string           `json:"opened_at"`
	ClosedAt       *string          `json:"closed_at"`
	InitialCash    decimal.Decimal  `json:"initial_cash"`
	CashSales      decimal.Decimal  `json:"cash_sales"`
	TransferSales  decimal.Decimal  `json:"transfer_sales"`
	Expenses       decimal.Decimal  `json:"expenses"`
	ExpectedCash   decimal.Decimal  `json:"expected_cash"`
	Difference     *decimal.Decimal `json:"difference"`
	DifferenceType *string          `json:"difference_type"`
}

// ReportTotals are the aggregate figures shared by daily and period reports.
type ReportTotals struct {
	SessionsCount      int             `json:"sessions_count"`
	TotalCashSales     decimal.Decimal `json:"total_cash_sales"`
	TotalTransferSales decimal.Decimal `json:"total_transfer_sales"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	NetCashFlow        decimal.Decimal `json:"net_cash_flow"`
	TotalDifferences   decimal.Decimal `json:"total_differences"`
}

type DailyReport struct {
	BusinessID string `json:"business_id"`
	Date       string `json:"date"` // YYYY-MM-DD in Timezone
	Timezone   string `json:"timezone"`
	ReportTotals
	Sessions []SessionReportRow `json:"sessions"`
}

type PeriodReport struct {
	BusinessID string `json:"business_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Timezone   string `json:"timezone"`
	ReportTotals
	Days []DailyReport `json:"days"`
}
