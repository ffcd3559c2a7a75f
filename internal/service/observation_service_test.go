package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/codeit/findexapi/internal/keyset"
	"github.com/codeit/findexapi/internal/models"
)

func TestObservationListParamsDefaults(t *testing.T) {
	params := ObservationListParams{}
	params.normalize()

	assert.Equal(t, keyset.DefaultSortField, params.SortField)
	assert.Equal(t, "desc", params.SortDirection)
	assert.Equal(t, DefaultPageSize, params.Size)
	assert.True(t, params.descending())
}

func TestObservationListParamsInvalidSizeFallsBack(t *testing.T) {
	for _, size := range []int{-5, 0} {
		params := ObservationListParams{Size: size}
		params.normalize()
		assert.Equal(t, DefaultPageSize, params.Size, size)
	}
}

func TestObservationListParamsKeepsExplicitValues(t *testing.T) {
	params := ObservationListParams{SortField: "close", SortDirection: "asc", Size: 25}
	params.normalize()

	assert.Equal(t, "close", params.SortField)
	assert.Equal(t, 25, params.Size)
	assert.False(t, params.descending())
}

func TestObservationListParamsDirectionCaseInsensitive(t *testing.T) {
	params := ObservationListParams{SortDirection: "DESC"}
	assert.True(t, params.descending())

	params.SortDirection = "ASC"
	assert.False(t, params.descending())
}

func TestObservationListParamsFilters(t *testing.T) {
	definitionID := int64(7)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params := ObservationListParams{IndexDefinitionID: &definitionID, StartDate: &start}

	filters := params.filters()
	assert.Equal(t, &definitionID, filters.IndexDefinitionID)
	assert.Equal(t, &start, filters.StartDate)
	assert.Nil(t, filters.EndDate)
}

// fakeObservationPager serves pre-sorted rows and records the decoded
// cursor it was handed, so tests can assert which boundary reached it.
type fakeObservationPager struct {
	rows       []models.IndexObservation
	total      int64
	lastCursor *keyset.Cursor
}

func (f *fakeObservationPager) FindPage(_ keyset.Filters, _ keyset.SortKey, _ bool, cursor *keyset.Cursor, size int) ([]models.IndexObservation, bool, error) {
	f.lastCursor = cursor
	start := 0
	if cursor != nil {
		for i, row := range f.rows {
			if row.ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}
	remaining := f.rows[start:]
	hasNext := len(remaining) > size
	if hasNext {
		remaining = remaining[:size]
	}
	return remaining, hasNext, nil
}

func (f *fakeObservationPager) CountByFilters(keyset.Filters) (int64, error) {
	return f.total, nil
}

func pagerObservation(id int64, date string) models.IndexObservation {
	day, _ := time.Parse("2006-01-02", date)
	return models.IndexObservation{ID: id, ObservationDate: datatypes.Date(day)}
}

func TestListObservationsCursorChainsAcrossPages(t *testing.T) {
	pager := &fakeObservationPager{
		rows: []models.IndexObservation{
			pagerObservation(1, "2024-05-03"),
			pagerObservation(2, "2024-05-02"),
			pagerObservation(3, "2024-05-01"),
		},
		total: 3,
	}
	svc := &ObservationService{pager: pager}

	page1, err := svc.ListObservations(ObservationListParams{Size: 2})
	require.NoError(t, err)
	require.Len(t, page1.Content, 2)
	assert.True(t, page1.HasNext)
	assert.Equal(t, int64(3), page1.TotalElements)
	require.NotNil(t, page1.NextCursor)
	assert.Equal(t, "2024-05-02_2", *page1.NextCursor)
	require.NotNil(t, page1.NextIDAfter)
	assert.Equal(t, int64(2), *page1.NextIDAfter)

	page2, err := svc.ListObservations(ObservationListParams{Size: 2, Cursor: *page1.NextCursor})
	require.NoError(t, err)

	// The cursor must decode to the last row of page one, not fall back
	// to the first page.
	require.NotNil(t, pager.lastCursor)
	assert.Equal(t, int64(2), pager.lastCursor.ID)

	require.Len(t, page2.Content, 1)
	assert.Equal(t, int64(3), page2.Content[0].ID)
	assert.False(t, page2.HasNext)
	assert.Nil(t, page2.NextCursor)
	assert.Nil(t, page2.NextIDAfter)
}
