// Package keyset implements cursor-based pagination over the observation
// table: a whitelist of sortable fields, the cursor codec and the query
// planner that produces the predicate and ordering a repository executes.
package keyset

import (
	"errors"
	"strconv"

	"github.com/codeit/findexapi/internal/models"
)

// ErrUnknownSortField is returned when a requested sort field is not in the whitelist
var ErrUnknownSortField = errors.New("unknown sort field")

// ValueKind is the value type of a sortable field
type ValueKind int

const (
	KindDate ValueKind = iota
	KindDecimal
	KindInteger
)

// SortKey is the authoritative descriptor of one sortable field. Planner,
// page executor and cursor codec all consume the same variant, so the
// column, the cursor value type and the value extractor cannot drift apart.
type SortKey struct {
	Name    string
	Column  string
	Kind    ValueKind
	Extract func(o *models.IndexObservation) string
}

var sortKeys = map[string]SortKey{
	"observationDate": {
		Name: "observationDate", Column: "observation_date", Kind: KindDate,
		Extract: func(o *models.IndexObservation) string { return o.DateString() },
	},
	"open": {
		Name: "open", Column: "open", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.Open.String() },
	},
	"close": {
		Name: "close", Column: "close", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.Close.String() },
	},
	"high": {
		Name: "high", Column: "high", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.High.String() },
	},
	"low": {
		Name: "low", Column: "low", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.Low.String() },
	},
	"delta": {
		Name: "delta", Column: "delta", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.Delta.String() },
	},
	"percentChange": {
		Name: "percentChange", Column: "percent_change", Kind: KindDecimal,
		Extract: func(o *models.IndexObservation) string { return o.PercentChange.String() },
	},
	"tradedQuantity": {
		Name: "tradedQuantity", Column: "traded_quantity", Kind: KindInteger,
		Extract: func(o *models.IndexObservation) string { return strconv.FormatInt(o.TradedQuantity, 10) },
	},
	"tradedValue": {
		Name: "tradedValue", Column: "traded_value", Kind: KindInteger,
		Extract: func(o *models.IndexObservation) string { return strconv.FormatInt(o.TradedValue, 10) },
	},
	"totalMarketValue": {
		Name: "totalMarketValue", Column: "total_market_value", Kind: KindInteger,
		Extract: func(o *models.IndexObservation) string { return strconv.FormatInt(o.TotalMarketValue, 10) },
	},
}

// DefaultSortField is used when a request does not name a sort field
const DefaultSortField = "observationDate"

// Lookup returns the sort key for a field name, or ErrUnknownSortField if
// the field is not whitelisted. Callers must fail fast on the error before
// building any predicate.
func Lookup(field string) (SortKey, error) {
	key, ok := sortKeys[field]
	if !ok {
		return SortKey{}, ErrUnknownSortField
	}
	return key, nil
}

// Fields returns the whitelisted sort field names
func Fields() []string {
	fields := make([]string, 0, len(sortKeys))
	for name := range sortKeys {
		fields = append(fields, name)
	}
	return fields
}
