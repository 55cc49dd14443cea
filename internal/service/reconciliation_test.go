package service_test

import (
	"testing"

	"cajaflow/internal/model"
	"cajaflow/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDifference_Boundaries(t *testing.T) {
	eps := money("0.01")
	cases := []struct {
		diff string
		want string
	}{
		{"0", model.DiferenciaExacto},
		{"0.009", model.DiferenciaExacto},
		{"-0.009", model.DiferenciaExacto},
		{"0.01", model.DiferenciaSobrante},
		{"-0.01", model.DiferenciaFaltante},
		{"-3.00", model.DiferenciaFaltante},
		{"12.40", model.DiferenciaSobrante},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, service.ClassifyDifference(money(tc.diff), eps), "diff %s", tc.diff)
	}
}

func TestClassifyDifference_ZeroTolerance(t *testing.T) {
	zero := money("0")
	assert.Equal(t, model.DiferenciaExacto, service.ClassifyDifference(zero, zero))
	assert.Equal(t, model.DiferenciaFaltante, service.ClassifyDifference(money("-0.001"), zero))
}

func TestReconcile(t *testing.T) {
	totals := service.Totals{
		CashSales:     money("45.00"),
		TransferSales: money("120.00"),
		ExpensesTotal: money("12.00"),
	}
	rec := service.Reconcile(money("50.00"), totals, money("80.00"), money("0.01"))

	assertMoney(t, "83.00", rec.ExpectedCash, "expected")
	assertMoney(t, "-3.00", rec.Difference, "difference")
	assert.Equal(t, model.DiferenciaFaltante, rec.Type)
}

func TestNewDenomination(t *testing.T) {
	d, err := service.NewDenomination(" Bill ", money("50"), 3)
	require.NoError(t, err)
	assert.Equal(t, service.Billete, d.Type)
	assertMoney(t, "150", d.Subtotal(), "subtotal")

	c, err := service.NewDenomination("coin", money("0.10"), 7)
	require.NoError(t, err)
	assertMoney(t, "0.70", c.Subtotal(), "subtotal")

	for _, tc := range []struct {
		typ   string
		value string
		qty   int
	}{
		{"bill", "2", 1},
		{"coin", "0.20", 1},
		{"note", "20", 1},
		{"bill", "20", -1},
	} {
		_, err := service.NewDenomination(tc.typ, money(tc.value), tc.qty)
		assert.ErrorIs(t, err, service.ErrValidation, "%s %s x%d", tc.typ, tc.value, tc.qty)
	}
}

func TestLedgerSubtotal(t *testing.T) {
	rows := []model.DenominationCount{
		{Type: service.Billete, Value: money("20"), Quantity: 2},
		{Type: service.Billete, Value: money("5"), Quantity: 1},
		{Type: service.Moneda, Value: money("0.25"), Quantity: 4},
	}
	assertMoney(t, "46.00", service.LedgerSubtotal(rows), "subtotal")
	assertMoney(t, "0", service.LedgerSubtotal(nil), "empty")
}
