// Package service contains the service layer for the Findex API
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

// rankLookback is the trailing-window length: the comparison price is the
// close 30 periods earlier within the same definition
const rankLookback = 30

var (
	rankCacheVersionKey = "findex:rank:version"
	rankCacheTTL        = 5 * time.Minute
)

// RankSelector picks the definition population to rank
type RankSelector struct {
	IndexDefinitionID *int64
	Classification    string
	Name              string
	Limit             int
}

// PerformanceRow is one ranked trailing-window result
type PerformanceRow struct {
	IndexDefinitionID int64           `json:"index_definition_id"`
	Classification    string          `json:"classification"`
	Name              string          `json:"name"`
	ObservationDate   string          `json:"observation_date"`
	Delta             decimal.Decimal `json:"delta"`
	FluctuationRate   decimal.Decimal `json:"fluctuation_rate"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	PreviousPrice     decimal.Decimal `json:"previous_price"`
	Rank              int             `json:"rank"`
}

// RankService computes trailing-window performance rankings
type RankService struct {
	definitionRepo  *repository.DefinitionRepository
	observationRepo *repository.ObservationRepository
	redisClient     *redis.Client
}

// NewRankService creates a new RankService
func NewRankService(db *gorm.DB, redisClient *redis.Client) *RankService {
	return &RankService{
		definitionRepo:  repository.NewDefinitionRepository(db),
		observationRepo: repository.NewObservationRepository(db),
		redisClient:     redisClient,
	}
}

// RankPerformance computes the trailing-window delta and fluctuation rate
// for every observation of the selected population, ordered by fluctuation
// rate descending with ranks assigned by position. Results are cached in
// Redis until the TTL expires or an observation sync bumps the version.
func (s *RankService) RankPerformance(ctx context.Context, selector RankSelector) ([]PerformanceRow, error) {
	cacheKey := s.cacheKey(ctx, selector)
	if rows, ok := s.cacheGet(ctx, cacheKey); ok {
		return rows, nil
	}

	var definitions []models.IndexDefinition
	var err error
	if selector.IndexDefinitionID != nil {
		definition, err := s.definitionRepo.GetDefinitionByID(*selector.IndexDefinitionID)
		if err == gorm.ErrRecordNotFound {
			return nil, ErrDefinitionNotFound
		}
		if err != nil {
			return nil, err
		}
		definitions = []models.IndexDefinition{definition}
	} else {
		definitions, err = s.definitionRepo.QueryDefinitions(selector.Classification, selector.Name, nil)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]int64, len(definitions))
	for i := range definitions {
		ids[i] = definitions[i].ID
	}

	observations, err := s.observationRepo.FindForRanking(ids)
	if err != nil {
		return nil, err
	}

	rows := computePerformance(definitions, observations)
	if selector.Limit > 0 && len(rows) > selector.Limit {
		rows = rows[:selector.Limit]
	}

	s.cacheSet(ctx, cacheKey, rows)
	return rows, nil
}

// InvalidateRankCache bumps the cache version so every cached ranking is
// recomputed on next access
func (s *RankService) InvalidateRankCache(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Incr(ctx, rankCacheVersionKey).Err(); err != nil {
		zaplogger.Warn("Failed to bump rank cache version", zaplogger.Fields{"error": err.Error()})
	}
}

// computePerformance walks the observations of each definition in
// date-descending order. For position i the comparison row sits
// rankLookback positions later; rows without enough history keep zero
// delta and rate. The final ordering is fluctuation rate descending with
// ties left in walk order, and rank is the 1-based position.
func computePerformance(definitions []models.IndexDefinition, observations []models.IndexObservation) []PerformanceRow {
	byID := make(map[int64]*models.IndexDefinition, len(definitions))
	for i := range definitions {
		byID[definitions[i].ID] = &definitions[i]
	}

	hundred := decimal.NewFromInt(100)
	rows := make([]PerformanceRow, 0, len(observations))

	var group []models.IndexObservation
	flush := func() {
		for i := range group {
			current := group[i]
			definition := byID[current.IndexDefinitionID]
			if definition == nil {
				continue
			}

			row := PerformanceRow{
				IndexDefinitionID: definition.ID,
				Classification:    definition.Classification,
				Name:              definition.Name,
				ObservationDate:   current.DateString(),
				CurrentPrice:      current.Close,
			}

			if i+rankLookback < len(group) {
				previous := group[i+rankLookback]
				row.PreviousPrice = previous.Close
				row.Delta = current.Close.Sub(previous.Close)
				if !previous.Close.IsZero() {
					row.FluctuationRate = current.Close.Div(previous.Close).Mul(hundred).Round(2).Sub(hundred)
				}
			}

			rows = append(rows, row)
		}
		group = group[:0]
	}

	// FindForRanking delivers rows grouped by definition, newest first
	// within each group.
	for _, observation := range observations {
		if len(group) > 0 && group[len(group)-1].IndexDefinitionID != observation.IndexDefinitionID {
			flush()
		}
		group = append(group, observation)
	}
	flush()

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FluctuationRate.GreaterThan(rows[j].FluctuationRate)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func (s *RankService) cacheKey(ctx context.Context, selector RankSelector) string {
	version := "1"
	if s.redisClient != nil {
		if v, err := s.redisClient.Get(ctx, rankCacheVersionKey).Result(); err == nil {
			version = v
		}
	}
	id := int64(0)
	if selector.IndexDefinitionID != nil {
		id = *selector.IndexDefinitionID
	}
	return fmt.Sprintf("findex:rank:v%s:%d:%s:%s:%d", version, id, selector.Classification, selector.Name, selector.Limit)
}

func (s *RankService) cacheGet(ctx context.Context, key string) ([]PerformanceRow, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	payload, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var rows []PerformanceRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *RankService) cacheSet(ctx context.Context, key string, rows []PerformanceRow) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, payload, rankCacheTTL).Err(); err != nil {
		zaplogger.Warn("Failed to cache rank result", zaplogger.Fields{"error": err.Error()})
	}
}
