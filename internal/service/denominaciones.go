package service

import (
	"strings"

	"cajaflow/internal/model"

	"github.com/shopspring/decimal"
)

const (
	Billete = "bill"
	Moneda  = "coin"
)

// denominationTable lists the face values accepted per type.
var denominationTable = map[string][]decimal.Decimal{
	Billete: {
		decimal.NewFromInt(100), decimal.NewFromInt(50), decimal.NewFromInt(20),
		decimal.NewFromInt(10), decimal.NewFromInt(5), decimal.NewFromInt(1),
	},
	Moneda: {
		decimal.NewFromInt(1), decimal.New(50, -2), decimal.New(25, -2),
		decimal.New(10, -2), decimal.New(5, -2), decimal.New(1, -2),
	},
}

// Denomination is a validated count of one bill or coin face value.
type Denomination struct {
	Type     string
	Value    decimal.Decimal
	Quantity int
}

// NewDenomination validates type, value and quantity against the fixed table.
func NewDenomination(typ string, value decimal.Decimal, quantity int) (Denomination, error) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	values, ok := denominationTable[typ]
	if !ok {
		return Denomination{}, validationf("tipo de denominación desconocido: %q", typ)
	}
	if quantity < 0 {
		return Denomination{}, validationf("la cantidad no puede ser negativa")
	}
	for _, v := range values {
		if v.Equal(value) {
			return Denomination{Type: typ, Value: v.Round(2), Quantity: quantity}, nil
		}
	}
	return Denomination{}, validationf("denominación no admitida: %s %s", typ, value.String())
}

func (d Denomination) Subtotal() decimal.Decimal {
	return d.Value.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

func (d Denomination) toModel() model.DenominationCount {
	return model.DenominationCount{Type: d.Type, Value: d.Value, Quantity: d.Quantity}
}

// LedgerSubtotal sums value × quantity over every ledger row of a session.
func LedgerSubtotal(rows []model.DenominationCount) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Value.Mul(decimal.NewFromInt(int64(r.Quantity))))
	}
	return total.Round(2)
}
