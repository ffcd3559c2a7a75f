package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDBoundaryExprFollowsSortDirection(t *testing.T) {
	// Ascending pages advance toward larger ids, descending pages toward
	// smaller ones; a fixed operator would re-serve the same page forever.
	assert.Equal(t, "id > ?", idBoundaryExpr(false))
	assert.Equal(t, "id < ?", idBoundaryExpr(true))
}
