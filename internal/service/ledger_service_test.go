package service

import (
	"encoding/base64"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
)

// fakeLedgerListStore serves an in-memory ledger with the repository's
// boundary semantics: the id cursor moves with the sort direction.
type fakeLedgerListStore struct {
	entries []models.SyncLedgerEntry
}

func (f *fakeLedgerListStore) SearchLedgerEntries(params repository.LedgerSearchParams) ([]models.SyncLedgerEntry, error) {
	var out []models.SyncLedgerEntry
	for _, e := range f.entries {
		if params.IDAfter != nil {
			if params.SortDescending && e.ID >= *params.IDAfter {
				continue
			}
			if !params.SortDescending && e.ID <= *params.IDAfter {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if params.SortDescending {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > params.Size+1 {
		out = out[:params.Size+1]
	}
	return out, nil
}

func (f *fakeLedgerListStore) CountLedgerEntries(repository.LedgerSearchParams) (int64, error) {
	return int64(len(f.entries)), nil
}

func newFakeLedgerListStore(n int64) *fakeLedgerListStore {
	store := &fakeLedgerListStore{}
	for i := int64(1); i <= n; i++ {
		store.entries = append(store.entries, models.SyncLedgerEntry{ID: i, JobKind: models.JobKindDefinitionSync})
	}
	return store
}

func TestLedgerCursorRoundTrip(t *testing.T) {
	raw := encodeLedgerCursor(1234)

	id := DecodeLedgerCursor(raw)
	require.NotNil(t, id)
	assert.Equal(t, int64(1234), *id)
}

func TestDecodeLedgerCursorMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not base64":     "%%%",
		"not json":       base64.StdEncoding.EncodeToString([]byte("not json")),
		"wrong document": base64.StdEncoding.EncodeToString([]byte(`[1,2,3]`)),
	}
	for name, raw := range cases {
		assert.Nil(t, DecodeLedgerCursor(raw), name)
	}
}

func TestListLedgerEntriesDescendingPagination(t *testing.T) {
	svc := &LedgerService{repo: newFakeLedgerListStore(10)}

	page1, err := svc.ListLedgerEntries(repository.LedgerSearchParams{SortDescending: true, Size: 4})
	require.NoError(t, err)
	require.Len(t, page1.Content, 4)
	assert.Equal(t, int64(10), page1.Content[0].ID)
	assert.Equal(t, int64(7), page1.Content[3].ID)
	assert.True(t, page1.HasNext)
	require.NotNil(t, page1.NextCursor)

	// The cursor must keep moving toward smaller ids, not re-serve the page.
	page2, err := svc.ListLedgerEntries(repository.LedgerSearchParams{
		SortDescending: true,
		Size:           4,
		IDAfter:        DecodeLedgerCursor(*page1.NextCursor),
	})
	require.NoError(t, err)
	require.Len(t, page2.Content, 4)
	assert.Equal(t, int64(6), page2.Content[0].ID)
	assert.Equal(t, int64(3), page2.Content[3].ID)
	assert.True(t, page2.HasNext)
	require.NotNil(t, page2.NextCursor)

	page3, err := svc.ListLedgerEntries(repository.LedgerSearchParams{
		SortDescending: true,
		Size:           4,
		IDAfter:        DecodeLedgerCursor(*page2.NextCursor),
	})
	require.NoError(t, err)
	require.Len(t, page3.Content, 2)
	assert.Equal(t, int64(2), page3.Content[0].ID)
	assert.Equal(t, int64(1), page3.Content[1].ID)
	assert.False(t, page3.HasNext)
	assert.Nil(t, page3.NextCursor)
}

func TestListLedgerEntriesAscendingPagination(t *testing.T) {
	svc := &LedgerService{repo: newFakeLedgerListStore(5)}

	page1, err := svc.ListLedgerEntries(repository.LedgerSearchParams{Size: 3})
	require.NoError(t, err)
	require.Len(t, page1.Content, 3)
	assert.Equal(t, int64(1), page1.Content[0].ID)
	assert.True(t, page1.HasNext)
	require.NotNil(t, page1.NextCursor)

	page2, err := svc.ListLedgerEntries(repository.LedgerSearchParams{
		Size:    3,
		IDAfter: DecodeLedgerCursor(*page1.NextCursor),
	})
	require.NoError(t, err)
	require.Len(t, page2.Content, 2)
	assert.Equal(t, int64(4), page2.Content[0].ID)
	assert.False(t, page2.HasNext)
	assert.Nil(t, page2.NextCursor)
}
