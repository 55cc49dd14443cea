package service

import (
	"cajaflow/internal/dto"
	"cajaflow/internal/model"

	"github.com/shopspring/decimal"
)

// CountedCash is either a ManualCount or a DenominatedCount.
type CountedCash interface {
	countingMode() string
}

// ManualCount is a single figure typed by the cashier.
type ManualCount struct {
	Amount decimal.Decimal
}

func (ManualCount) countingMode() string { return model.ConteoManual }

// DenominatedCount carries per-denomination rows. The counted figure is
// recomputed from the session ledger after these rows are stored. Declared is
// the optional figure the client typed alongside; it must match the ledger.
type DenominatedCount struct {
	Rows     []Denomination
	Declared *decimal.Decimal
}

func (DenominatedCount) countingMode() string { return model.ConteoDenominaciones }

// Reconciliation is the outcome of comparing counted against expected cash.
type Reconciliation struct {
	ExpectedCash decimal.Decimal
	Counted      decimal.Decimal
	Difference   decimal.Decimal
	Type         string
}

// ExpectedCash = initial + cash sales − expenses. Transfers never reach the drawer.
func ExpectedCash(initial decimal.Decimal, t Totals) decimal.Decimal {
	return initial.Add(t.CashSales).Sub(t.ExpensesTotal)
}

// ClassifyDifference: |d| < tolerance → exacto, d < 0 → faltante, d > 0 → sobrante.
// A zero difference is exacto even with a zero tolerance.
func ClassifyDifference(diff, tolerance decimal.Decimal) string {
	switch {
	case diff.IsZero(), diff.Abs().LessThan(tolerance):
		return model.DiferenciaExacto
	case diff.IsNegative():
		return model.DiferenciaFaltante
	default:
		return model.DiferenciaSobrante
	}
}

func Reconcile(initial decimal.Decimal, t Totals, counted, tolerance decimal.Decimal) Reconciliation {
	expected := ExpectedCash(initial, t)
	diff := counted.Sub(expected)
	return Reconciliation{
		ExpectedCash: expected,
		Counted:      counted,
		Difference:   diff,
		Type:         ClassifyDifference(diff, tolerance),
	}
}

// resolveCountedCash returns the authoritative counted figure given the
// session ledger as stored at close time. Any ledger row, zero quantities
// included, makes the ledger authoritative.
func resolveCountedCash(counted CountedCash, ledger []model.DenominationCount) (decimal.Decimal, error) {
	switch c := counted.(type) {
	case ManualCount:
		if len(ledger) > 0 {
			subtotal := LedgerSubtotal(ledger)
			if !subtotal.Equal(c.Amount) {
				return decimal.Zero, integrityMismatch(c.Amount, subtotal)
			}
		}
		return c.Amount, nil
	case DenominatedCount:
		if len(ledger) == 0 {
			return decimal.Zero, validationf("no hay denominaciones registradas para la sesión")
		}
		subtotal := LedgerSubtotal(ledger)
		if c.Declared != nil && !subtotal.Equal(*c.Declared) {
			return decimal.Zero, integrityMismatch(*c.Declared, subtotal)
		}
		return subtotal, nil
	default:
		return decimal.Zero, validationf("modo de conteo desconocido")
	}
}

// countedCashFromDTO converts the wire union into its domain variant.
func countedCashFromDTO(req dto.CountedCash) (CountedCash, error) {
	switch req.Mode {
	case model.ConteoManual:
		if req.Amount == nil {
			return nil, validationf("el monto contado es obligatorio en modo manual")
		}
		if err := checkMoney("monto contado", *req.Amount, true); err != nil {
			return nil, err
		}
		return ManualCount{Amount: *req.Amount}, nil
	case model.ConteoDenominaciones:
		rows := make([]Denomination, 0, len(req.Denominations))
		for _, r := range req.Denominations {
			d, err := NewDenomination(r.Type, r.Value, r.Quantity)
			if err != nil {
				return nil, err
			}
			rows = append(rows, d)
		}
		if req.Amount != nil {
			if err := checkMoney("monto contado", *req.Amount, true); err != nil {
				return nil, err
			}
		}
		return DenominatedCount{Rows: rows, Declared: req.Amount}, nil
	default:
		return nil, validationf("modo de conteo desconocido: %q", req.Mode)
	}
}

// checkMoney rejects negative amounts (and zero unless allowZero) and amounts
// with more than two fraction digits.
func checkMoney(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() {
		return validationf("%s no puede ser negativo", field)
	}
	if !allowZero && amount.IsZero() {
		return validationf("%s debe ser mayor a cero", field)
	}
	if !amount.Equal(amount.Round(2)) {
		return validationf("%s admite como máximo dos decimales", field)
	}
	return nil
}
