package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyTimesKeepsTwoDecimals(t *testing.T) {
	price := MustParseMoney("100.00")
	assert.Equal(t, "500.00", price.Times(5).String())

	price = MustParseMoney("0.10")
	assert.Equal(t, "0.30", price.Times(3).String())

	price = MustParseMoney("19.99")
	assert.Equal(t, "59.97", price.Times(3).String())
}

func TestMoneyJSONNumberAndString(t *testing.T) {
	var payload struct {
		Price Money `json:"price"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5}`), &payload))
	assert.Equal(t, "12.50", payload.Price.String())

	require.NoError(t, json.Unmarshal([]byte(`{"price": "7"}`), &payload))
	assert.Equal(t, "7.00", payload.Price.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 7.00}`, string(out))
	assert.Contains(t, string(out), "7.00")
}

func TestMoneyRejectsBadInput(t *testing.T) {
	var m Money
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`null`), &m))
	assert.Error(t, json.Unmarshal([]byte(`1.005`), &m))

	_, err := ParseMoney("1.500")
	assert.NoError(t, err, "trailing zeros beyond the scale are harmless")
}

func TestMoneyScanNormalizesDriverValues(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(float64(19.99)))
	assert.Equal(t, "19.99", m.String())

	require.NoError(t, m.Scan([]byte("100")))
	assert.Equal(t, "100.00", m.String())

	require.NoError(t, m.Scan(int64(3)))
	assert.Equal(t, "3.00", m.String())

	v, err := MoneyFromCents(1234).Value()
	require.NoError(t, err)
	assert.Equal(t, "12.34", v)
}

func TestMoneyIsNegative(t *testing.T) {
	assert.True(t, NewMoney(decimal.NewFromInt(-1)).IsNegative())
	assert.False(t, MoneyFromCents(0).IsNegative())
}
