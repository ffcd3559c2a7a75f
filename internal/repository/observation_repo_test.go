package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeit/findexapi/internal/models"
)

func TestTrimPageOverflow(t *testing.T) {
	fetched := []models.IndexObservation{{ID: 1}, {ID: 2}, {ID: 3}}

	page, hasNext := trimPage(fetched, 2)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), page[0].ID)
	assert.Equal(t, int64(2), page[1].ID)
	assert.True(t, hasNext)
}

func TestTrimPageLastPage(t *testing.T) {
	fetched := []models.IndexObservation{{ID: 1}, {ID: 2}}

	page, hasNext := trimPage(fetched, 2)
	assert.Len(t, page, 2)
	assert.False(t, hasNext)
}

func TestTrimPageEmpty(t *testing.T) {
	page, hasNext := trimPage(nil, 10)
	assert.Empty(t, page)
	assert.False(t, hasNext)
}
