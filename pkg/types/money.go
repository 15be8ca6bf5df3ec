package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed number of fractional digits for every price column.
const MoneyScale = 2

// Money is a fixed-scale decimal amount. JSON and SQL values always carry two
// fractional digits and never pass through float64.
type Money struct {
	decimal.Decimal
}

// MaxTransactionTotal is the largest amount transactions.total_price
// (NUMERIC(20,2)) holds.
var MaxTransactionTotal = Money{Decimal: decimal.RequireFromString("999999999999999999.99")}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(MoneyScale)}
}

// MoneyFromCents builds an amount from an integer number of minor units.
func MoneyFromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -MoneyScale)}
}

// ParseMoney parses a decimal string such as "100" or "19.99".
// More than two fractional digits are rejected rather than rounded.
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.Exponent() < -MoneyScale && !d.Equal(d.Round(MoneyScale)) {
		return Money{}, fmt.Errorf("amount %q has more than %d decimal places", value, MoneyScale)
	}
	return NewMoney(d), nil
}

func MustParseMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Times multiplies the amount by an integer quantity.
func (m Money) Times(qty int) Money {
	return NewMoney(m.Decimal.Mul(decimal.NewFromInt(int64(qty))))
}

func (m Money) IsNegative() bool {
	return m.Decimal.IsNegative()
}

func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal.StringFixed(MoneyScale)
}

// MarshalJSON emits a JSON number with two decimals, e.g. 500.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("amount must not be null")
	}
	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = NewMoney(d)
	return nil
}
