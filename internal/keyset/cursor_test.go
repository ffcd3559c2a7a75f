package keyset

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/codeit/findexapi/internal/models"
)

func testObservation() *models.IndexObservation {
	return &models.IndexObservation{
		ID:              42,
		ObservationDate: datatypes.Date(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)),
		Close:           decimal.RequireFromString("2745.82"),
		Delta:           decimal.RequireFromString("-12.35"),
		TradedQuantity:  550_000_123,
	}
}

func TestEncodeDateCursor(t *testing.T) {
	key, err := Lookup("observationDate")
	require.NoError(t, err)

	assert.Equal(t, "2024-05-03_42", Encode(key, testObservation()))
}

func TestDecodeDateCursor(t *testing.T) {
	key, err := Lookup("observationDate")
	require.NoError(t, err)

	cursor := Decode("2024-05-03_42", key)
	require.NotNil(t, cursor)
	assert.Equal(t, int64(42), cursor.ID)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), cursor.Value)
}

func TestDecimalCursorRoundTrip(t *testing.T) {
	key, err := Lookup("close")
	require.NoError(t, err)

	o := testObservation()
	raw := Encode(key, o)
	assert.Equal(t, "2745.82_42", raw)

	cursor := Decode(raw, key)
	require.NotNil(t, cursor)
	assert.Equal(t, int64(42), cursor.ID)
	value, ok := cursor.Value.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, value.Equal(o.Close))
}

func TestNegativeDecimalCursorRoundTrip(t *testing.T) {
	key, err := Lookup("delta")
	require.NoError(t, err)

	cursor := Decode(Encode(key, testObservation()), key)
	require.NotNil(t, cursor)
	value, ok := cursor.Value.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, value.Equal(decimal.RequireFromString("-12.35")))
}

func TestIntegerCursorRoundTrip(t *testing.T) {
	key, err := Lookup("tradedQuantity")
	require.NoError(t, err)

	cursor := Decode(Encode(key, testObservation()), key)
	require.NotNil(t, cursor)
	assert.Equal(t, int64(42), cursor.ID)
	assert.Equal(t, int64(550_000_123), cursor.Value)
}

func TestDecodeMalformedCursor(t *testing.T) {
	dateKey, err := Lookup("observationDate")
	require.NoError(t, err)
	decimalKey, err := Lookup("close")
	require.NoError(t, err)
	integerKey, err := Lookup("tradedQuantity")
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  string
		key  SortKey
	}{
		{"empty", "", dateKey},
		{"no separator", "garbage", dateKey},
		{"missing id", "2024-05-03_", dateKey},
		{"missing value", "_42", dateKey},
		{"non-numeric id", "2024-05-03_abc", dateKey},
		{"bad date", "20240503_42", dateKey},
		{"bad decimal", "abc_42", decimalKey},
		{"fractional integer", "1.5_42", integerKey},
	}
	for _, tc := range cases {
		assert.Nil(t, Decode(tc.raw, tc.key), tc.name)
	}
}
