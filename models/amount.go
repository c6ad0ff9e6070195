package models

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative money value. Missing, malformed or negative input
// decodes to zero so aggregates never see NaN.
type Amount struct {
	decimal.Decimal
}

func NewAmount(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{Decimal: decimal.Zero}
	}
	return AmountOf(decimal.NewFromFloat(v))
}

func AmountOf(d decimal.Decimal) Amount {
	if d.IsNegative() {
		return Amount{Decimal: decimal.Zero}
	}
	return Amount{Decimal: d}
}

func ParseAmount(b []byte) decimal.Decimal {
	s := string(bytes.TrimSpace(b))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Decimal = ParseAmount(b)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.StringFixed(2)), nil
}

// String renders the amount the way the dashboards show it, e.g. "$30.00".
func (a Amount) String() string {
	return "$" + a.Decimal.StringFixed(2)
}
