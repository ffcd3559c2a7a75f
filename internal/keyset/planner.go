// Package keyset implements cursor-based pagination over the observation table
package keyset

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Filters restricts the observation rows a page is drawn from
type Filters struct {
	IndexDefinitionID *int64
	StartDate         *time.Time
	EndDate           *time.Time
}

// Cond is one predicate fragment with its bind arguments
type Cond struct {
	Expr string
	Args []interface{}
}

// Plan is the predicate and ordering the storage layer executes. The order
// always carries "id ASC" as the secondary key so rows with duplicate sort
// values still form a total order.
type Plan struct {
	Conds []Cond
	Order string
}

// Build translates filters, sort key, direction and cursor into a Plan.
// Without a cursor, no boundary predicate is added (first page). With one,
// the boundary is (col < v OR (col = v AND id > lastId)) for descending
// order, and (col > v OR ...) for ascending.
func Build(f Filters, key SortKey, descending bool, cursor *Cursor) Plan {
	var conds []Cond

	if f.IndexDefinitionID != nil {
		conds = append(conds, Cond{"index_definition_id = ?", []interface{}{*f.IndexDefinitionID}})
	}
	if f.StartDate != nil {
		conds = append(conds, Cond{"observation_date >= ?", []interface{}{*f.StartDate}})
	}
	if f.EndDate != nil {
		conds = append(conds, Cond{"observation_date <= ?", []interface{}{*f.EndDate}})
	}

	if cursor != nil {
		op := ">"
		if descending {
			op = "<"
		}
		expr := fmt.Sprintf("(%s %s ? OR (%s = ? AND id > ?))", key.Column, op, key.Column)
		conds = append(conds, Cond{expr, []interface{}{cursor.Value, cursor.Value, cursor.ID}})
	}

	dir := "ASC"
	if descending {
		dir = "DESC"
	}

	return Plan{
		Conds: conds,
		Order: fmt.Sprintf("%s %s, id ASC", key.Column, dir),
	}
}

// CountPlan builds a plan carrying only the filter predicates, for total
// element counts that must ignore the page boundary and ordering.
func CountPlan(f Filters) Plan {
	p := Build(f, SortKey{Column: "id"}, false, nil)
	p.Order = ""
	return p
}

// Apply attaches the plan's predicates and ordering to a gorm query
func (p Plan) Apply(query *gorm.DB) *gorm.DB {
	for _, c := range p.Conds {
		query = query.Where(c.Expr, c.Args...)
	}
	if p.Order != "" {
		query = query.Order(p.Order)
	}
	return query
}
