package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeit/findexapi/internal/service"
)

type fakeRanker struct {
	rows []service.PerformanceRow
	err  error
}

func (f *fakeRanker) RankPerformance(context.Context, service.RankSelector) ([]service.PerformanceRow, error) {
	return f.rows, f.err
}

func rankRequest(t *testing.T, ranker performanceRanker, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/index-performances/rank"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &RankHandler{RankService: ranker}
	require.NoError(t, h.GetPerformanceRank(c))
	return rec
}

func TestGetPerformanceRankUnknownDefinition(t *testing.T) {
	rec := rankRequest(t, &fakeRanker{err: service.ErrDefinitionNotFound}, "?index_definition_id=999")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_type":"DefinitionNotFound"`)
}

func TestGetPerformanceRankServerError(t *testing.T) {
	rec := rankRequest(t, &fakeRanker{err: errors.New("redis down")}, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_type":"ServerException"`)
}

func TestGetPerformanceRankInvalidID(t *testing.T) {
	rec := rankRequest(t, &fakeRanker{}, "?index_definition_id=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_type":"InputException"`)
}
