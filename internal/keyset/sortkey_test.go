package keyset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownFields(t *testing.T) {
	expectedColumns := map[string]string{
		"observationDate":  "observation_date",
		"open":             "open",
		"close":            "close",
		"high":             "high",
		"low":              "low",
		"delta":            "delta",
		"percentChange":    "percent_change",
		"tradedQuantity":   "traded_quantity",
		"tradedValue":      "traded_value",
		"totalMarketValue": "total_market_value",
	}

	for field, column := range expectedColumns {
		key, err := Lookup(field)
		require.NoError(t, err, field)
		assert.Equal(t, field, key.Name)
		assert.Equal(t, column, key.Column)
		assert.NotNil(t, key.Extract, field)
	}
}

func TestLookupUnknownField(t *testing.T) {
	for _, field := range []string{"", "id", "observation_date", "Close", "created_at; DROP TABLE"} {
		_, err := Lookup(field)
		assert.ErrorIs(t, err, ErrUnknownSortField, field)
	}
}

func TestLookupDefaultSortField(t *testing.T) {
	key, err := Lookup(DefaultSortField)
	require.NoError(t, err)
	assert.Equal(t, "observation_date", key.Column)
	assert.Equal(t, KindDate, key.Kind)
}

func TestFields(t *testing.T) {
	fields := Fields()
	assert.Len(t, fields, 10)
	assert.Contains(t, fields, DefaultSortField)
	assert.Contains(t, fields, "percentChange")
}
