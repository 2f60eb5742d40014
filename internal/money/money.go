package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in the PSP wire shape: the value is always a
// string with exactly two decimals, e.g. {"currency":"EUR","value":"12.30"}.
// Rounding is half away from zero (half-up for the positive amounts this
// service deals in).
type Amount struct {
	Currency string
	Value    decimal.Decimal
}

func New(currency string, value decimal.Decimal) Amount {
	return Amount{Currency: currency, Value: value}
}

// String returns the fixed 2-decimal representation, never scientific notation.
func (a Amount) String() string {
	return a.Value.Round(2).StringFixed(2)
}

type wireAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAmount{Currency: a.Currency, Value: a.String()})
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var w wireAmount
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v, err := decimal.NewFromString(w.Value)
	if err != nil {
		return fmt.Errorf("money: bad value %q: %w", w.Value, err)
	}
	a.Currency = w.Currency
	a.Value = v
	return nil
}

// FormatRate renders a VAT rate as a plain 2-decimal string ("21.00").
func FormatRate(rate decimal.Decimal) string {
	return rate.Round(2).StringFixed(2)
}
