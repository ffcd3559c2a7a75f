// Package keyset implements cursor-based pagination over the observation table
package keyset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codeit/findexapi/internal/models"
)

// Cursor is a decoded page boundary: the sort value of the last served row
// and its id as the tie-break.
type Cursor struct {
	Value interface{} // time.Time, decimal.Decimal or int64, matching the sort key kind
	ID    int64
}

// Encode builds the canonical "<sortValue>_<id>" cursor for a row. The same
// sort value and id always produce the same string.
func Encode(key SortKey, o *models.IndexObservation) string {
	return fmt.Sprintf("%s_%d", key.Extract(o), o.ID)
}

// Decode parses a cursor against the given sort key. A malformed or
// unparsable cursor decodes to nil, restarting pagination from the first
// page instead of failing the request.
func Decode(raw string, key SortKey) *Cursor {
	if raw == "" || !strings.Contains(raw, "_") {
		return nil
	}

	sep := strings.LastIndex(raw, "_")
	valuePart := raw[:sep]
	idPart := raw[sep+1:]

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || valuePart == "" {
		return nil
	}

	var value interface{}
	switch key.Kind {
	case KindDate:
		t, err := time.Parse("2006-01-02", valuePart)
		if err != nil {
			return nil
		}
		value = t
	case KindDecimal:
		d, err := decimal.NewFromString(valuePart)
		if err != nil {
			return nil
		}
		value = d
	case KindInteger:
		n, err := strconv.ParseInt(valuePart, 10, 64)
		if err != nil {
			return nil
		}
		value = n
	}

	return &Cursor{Value: value, ID: id}
}
