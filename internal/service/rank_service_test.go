package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/codeit/findexapi/internal/models"
)

// rankObservations builds a date-descending observation series for one
// definition, newest first, with the given closes.
func rankObservations(definitionID int64, newest time.Time, closes ...string) []models.IndexObservation {
	observations := make([]models.IndexObservation, len(closes))
	for i, close := range closes {
		observations[i] = models.IndexObservation{
			ID:                int64(i + 1),
			IndexDefinitionID: definitionID,
			ObservationDate:   datatypes.Date(newest.AddDate(0, 0, -i)),
			Close:             decimal.RequireFromString(close),
		}
	}
	return observations
}

func rankDefinition(id int64, name string) models.IndexDefinition {
	return models.IndexDefinition{ID: id, Classification: "KOSPI Series", Name: name}
}

func TestComputePerformanceTrailingWindow(t *testing.T) {
	// 31 closes descending from 130 to 100: the newest row compares
	// against the row 30 positions back, which closed at 100.
	closes := make([]string, 31)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(130 - i)).String()
	}
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	definitions := []models.IndexDefinition{rankDefinition(1, "Composite")}
	observations := rankObservations(1, newest, closes...)

	rows := computePerformance(definitions, observations)
	require.Len(t, rows, 31)

	top := rows[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "2024-05-03", top.ObservationDate)
	assert.True(t, top.CurrentPrice.Equal(decimal.NewFromInt(130)), top.CurrentPrice.String())
	assert.True(t, top.PreviousPrice.Equal(decimal.NewFromInt(100)), top.PreviousPrice.String())
	assert.True(t, top.Delta.Equal(decimal.NewFromInt(30)), top.Delta.String())
	assert.True(t, top.FluctuationRate.Equal(decimal.NewFromInt(30)), top.FluctuationRate.String())

	// Every other row lacks a full trailing window and keeps zero delta
	// and rate.
	for _, row := range rows[1:] {
		assert.True(t, row.Delta.IsZero(), row.ObservationDate)
		assert.True(t, row.FluctuationRate.IsZero(), row.ObservationDate)
		assert.True(t, row.PreviousPrice.IsZero(), row.ObservationDate)
	}
}

func TestComputePerformanceRounding(t *testing.T) {
	closes := make([]string, 31)
	closes[0] = "107.1"
	for i := 1; i < 31; i++ {
		closes[i] = "300"
	}
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	rows := computePerformance(
		[]models.IndexDefinition{rankDefinition(1, "Composite")},
		rankObservations(1, newest, closes...),
	)
	require.NotEmpty(t, rows)

	// 107.1/300*100 = 35.7, rounded before the 100 subtraction. The only
	// non-zero rate is negative, so the row sorts last.
	last := rows[len(rows)-1]
	assert.Equal(t, "-64.3", last.FluctuationRate.String())
	assert.Equal(t, len(rows), last.Rank)
}

func TestComputePerformanceShortHistory(t *testing.T) {
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	rows := computePerformance(
		[]models.IndexDefinition{rankDefinition(1, "Composite")},
		rankObservations(1, newest, "110", "108", "105"),
	)

	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.True(t, row.Delta.IsZero())
		assert.True(t, row.FluctuationRate.IsZero())
	}
}

func TestComputePerformanceZeroPreviousClose(t *testing.T) {
	closes := make([]string, 31)
	closes[0] = "50"
	for i := 1; i < 31; i++ {
		closes[i] = "0"
	}
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	rows := computePerformance(
		[]models.IndexDefinition{rankDefinition(1, "Composite")},
		rankObservations(1, newest, closes...),
	)
	require.NotEmpty(t, rows)

	// The delta is still computed, but the rate stays zero rather than
	// dividing by a zero close.
	assert.True(t, rows[0].Delta.Equal(decimal.NewFromInt(50)))
	assert.True(t, rows[0].FluctuationRate.IsZero())
}

func TestComputePerformanceRanksAcrossDefinitions(t *testing.T) {
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	gainers := make([]string, 31)
	gainers[0] = "120"
	for i := 1; i < 31; i++ {
		gainers[i] = "100"
	}
	losers := make([]string, 31)
	losers[0] = "90"
	for i := 1; i < 31; i++ {
		losers[i] = "100"
	}

	definitions := []models.IndexDefinition{
		rankDefinition(1, "Gainer"),
		rankDefinition(2, "Loser"),
	}
	observations := append(
		rankObservations(1, newest, gainers...),
		rankObservations(2, newest, losers...)...,
	)

	rows := computePerformance(definitions, observations)
	require.Len(t, rows, 62)

	assert.Equal(t, "Gainer", rows[0].Name)
	assert.Equal(t, 1, rows[0].Rank)
	assert.True(t, rows[0].FluctuationRate.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, "Loser", rows[len(rows)-1].Name)
	assert.Equal(t, 62, rows[len(rows)-1].Rank)
	assert.True(t, rows[len(rows)-1].FluctuationRate.Equal(decimal.NewFromInt(-10)))

	// Zero-rate rows keep their walk order between the two extremes
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestComputePerformanceSkipsUnknownDefinitions(t *testing.T) {
	newest := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	rows := computePerformance(
		[]models.IndexDefinition{rankDefinition(1, "Composite")},
		rankObservations(99, newest, "110", "108"),
	)
	assert.Empty(t, rows)
}
