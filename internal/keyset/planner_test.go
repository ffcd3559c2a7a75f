package keyset

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFirstPageDescending(t *testing.T) {
	key, err := Lookup("observationDate")
	require.NoError(t, err)

	plan := Build(Filters{}, key, true, nil)

	assert.Empty(t, plan.Conds)
	assert.Equal(t, "observation_date DESC, id ASC", plan.Order)
}

func TestBuildFirstPageAscending(t *testing.T) {
	key, err := Lookup("close")
	require.NoError(t, err)

	plan := Build(Filters{}, key, false, nil)

	assert.Empty(t, plan.Conds)
	assert.Equal(t, "close ASC, id ASC", plan.Order)
}

func TestBuildCursorPredicateDescending(t *testing.T) {
	key, err := Lookup("close")
	require.NoError(t, err)

	value := decimal.RequireFromString("2745.82")
	plan := Build(Filters{}, key, true, &Cursor{Value: value, ID: 42})

	require.Len(t, plan.Conds, 1)
	cond := plan.Conds[0]
	assert.Equal(t, "(close < ? OR (close = ? AND id > ?))", cond.Expr)
	require.Len(t, cond.Args, 3)
	assert.Equal(t, value, cond.Args[0])
	assert.Equal(t, value, cond.Args[1])
	assert.Equal(t, int64(42), cond.Args[2])
}

func TestBuildCursorPredicateAscending(t *testing.T) {
	key, err := Lookup("tradedQuantity")
	require.NoError(t, err)

	plan := Build(Filters{}, key, false, &Cursor{Value: int64(1000), ID: 7})

	require.Len(t, plan.Conds, 1)
	// The id tie-break stays "id > ?" in both directions: within equal
	// sort values rows are always served in id ascending order.
	assert.Equal(t, "(traded_quantity > ? OR (traded_quantity = ? AND id > ?))", plan.Conds[0].Expr)
	assert.Equal(t, "traded_quantity ASC, id ASC", plan.Order)
}

func TestBuildFilters(t *testing.T) {
	key, err := Lookup("observationDate")
	require.NoError(t, err)

	definitionID := int64(5)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	filters := Filters{IndexDefinitionID: &definitionID, StartDate: &start, EndDate: &end}

	plan := Build(filters, key, true, nil)

	require.Len(t, plan.Conds, 3)
	assert.Equal(t, "index_definition_id = ?", plan.Conds[0].Expr)
	assert.Equal(t, "observation_date >= ?", plan.Conds[1].Expr)
	assert.Equal(t, "observation_date <= ?", plan.Conds[2].Expr)
}

func TestBuildFiltersWithCursor(t *testing.T) {
	key, err := Lookup("observationDate")
	require.NoError(t, err)

	definitionID := int64(5)
	cursor := &Cursor{Value: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), ID: 42}
	plan := Build(Filters{IndexDefinitionID: &definitionID}, key, true, cursor)

	require.Len(t, plan.Conds, 2)
	assert.Equal(t, "(observation_date < ? OR (observation_date = ? AND id > ?))", plan.Conds[1].Expr)
}

func TestCountPlan(t *testing.T) {
	definitionID := int64(5)
	plan := CountPlan(Filters{IndexDefinitionID: &definitionID})

	require.Len(t, plan.Conds, 1)
	assert.Equal(t, "index_definition_id = ?", plan.Conds[0].Expr)
	assert.Empty(t, plan.Order)
}
