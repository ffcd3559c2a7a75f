// Package service contains the service layer for the Findex API
package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/keyset"
	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

// ErrObservationNotFound is returned when an observation id does not resolve
var ErrObservationNotFound = errors.New("index observation not found")

// DefaultPageSize is used when a list request carries no size or an
// invalid one
const DefaultPageSize = 10

// observationPager is the paged read contract the listing consumes; the
// concrete repository satisfies it and tests substitute fakes.
type observationPager interface {
	FindPage(f keyset.Filters, key keyset.SortKey, descending bool, cursor *keyset.Cursor, size int) ([]models.IndexObservation, bool, error)
	CountByFilters(f keyset.Filters) (int64, error)
}

// ObservationService manages index observations and the paged query surface
type ObservationService struct {
	repo           *repository.ObservationRepository
	pager          observationPager
	definitionRepo *repository.DefinitionRepository
}

// NewObservationService creates a new ObservationService
func NewObservationService(db *gorm.DB) *ObservationService {
	repo := repository.NewObservationRepository(db)
	return &ObservationService{
		repo:           repo,
		pager:          repo,
		definitionRepo: repository.NewDefinitionRepository(db),
	}
}

// ObservationListParams is a cursor-paginated list request
type ObservationListParams struct {
	IndexDefinitionID *int64
	StartDate         *time.Time
	EndDate           *time.Time
	SortField         string
	SortDirection     string
	Cursor            string
	Size              int
}

// normalize fills in the observed defaults: observationDate descending,
// size 10
func (p *ObservationListParams) normalize() {
	if p.SortField == "" {
		p.SortField = keyset.DefaultSortField
	}
	if p.SortDirection == "" {
		p.SortDirection = "desc"
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
}

func (p *ObservationListParams) descending() bool {
	return strings.EqualFold(p.SortDirection, "desc")
}

func (p *ObservationListParams) filters() keyset.Filters {
	return keyset.Filters{
		IndexDefinitionID: p.IndexDefinitionID,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
	}
}

// ObservationPage is one page of observations with its boundary
type ObservationPage struct {
	Content       []models.IndexObservation `json:"content"`
	NextCursor    *string                   `json:"next_cursor"`
	NextIDAfter   *int64                    `json:"next_id_after"`
	Size          int                       `json:"size"`
	TotalElements int64                     `json:"total_elements"`
	HasNext       bool                      `json:"has_next"`
}

// ListObservations serves one keyset-paginated page. An unknown sort field
// is rejected before any query is built; a malformed cursor silently
// restarts from the first page.
func (s *ObservationService) ListObservations(params ObservationListParams) (ObservationPage, error) {
	params.normalize()

	key, err := keyset.Lookup(params.SortField)
	if err != nil {
		return ObservationPage{}, err
	}

	cursor := keyset.Decode(params.Cursor, key)
	if cursor == nil && params.Cursor != "" {
		zaplogger.Debug("Malformed cursor, restarting from first page", zaplogger.Fields{
			"cursor": params.Cursor,
		})
	}

	content, hasNext, err := s.pager.FindPage(params.filters(), key, params.descending(), cursor, params.Size)
	if err != nil {
		return ObservationPage{}, err
	}

	total, err := s.pager.CountByFilters(params.filters())
	if err != nil {
		return ObservationPage{}, err
	}

	page := ObservationPage{
		Content:       content,
		Size:          params.Size,
		TotalElements: total,
		HasNext:       hasNext,
	}
	if hasNext && len(content) > 0 {
		last := content[len(content)-1]
		next := keyset.Encode(key, &last)
		page.NextCursor = &next
		page.NextIDAfter = &last.ID
	}
	return page, nil
}

// ObservationCreateRequest is a manual observation entry
type ObservationCreateRequest struct {
	IndexDefinitionID int64           `json:"index_definition_id"`
	ObservationDate   time.Time       `json:"observation_date"`
	Open              decimal.Decimal `json:"open"`
	Close             decimal.Decimal `json:"close"`
	High              decimal.Decimal `json:"high"`
	Low               decimal.Decimal `json:"low"`
	Delta             decimal.Decimal `json:"delta"`
	PercentChange     decimal.Decimal `json:"percent_change"`
	TradedQuantity    int64           `json:"traded_quantity"`
	TradedValue       int64           `json:"traded_value"`
	TotalMarketValue  int64           `json:"total_market_value"`
}

// ObservationUpdateRequest is a partial patch; nil fields keep their prior
// values
type ObservationUpdateRequest struct {
	Open             *decimal.Decimal `json:"open"`
	Close            *decimal.Decimal `json:"close"`
	High             *decimal.Decimal `json:"high"`
	Low              *decimal.Decimal `json:"low"`
	Delta            *decimal.Decimal `json:"delta"`
	PercentChange    *decimal.Decimal `json:"percent_change"`
	TradedQuantity   *int64           `json:"traded_quantity"`
	TradedValue      *int64           `json:"traded_value"`
	TotalMarketValue *int64           `json:"total_market_value"`
}

// CreateObservation registers a user-entered observation. A second
// observation for the same definition and date is rejected.
func (s *ObservationService) CreateObservation(request ObservationCreateRequest) (models.IndexObservation, error) {
	if _, err := s.definitionRepo.GetDefinitionByID(request.IndexDefinitionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.IndexObservation{}, ErrDefinitionNotFound
		}
		return models.IndexObservation{}, err
	}

	observation := models.IndexObservation{
		IndexDefinitionID: request.IndexDefinitionID,
		ObservationDate:   datatypes.Date(request.ObservationDate),
		SourceType:        models.SourceTypeUser,
		Open:              request.Open,
		Close:             request.Close,
		High:              request.High,
		Low:               request.Low,
		Delta:             request.Delta,
		PercentChange:     request.PercentChange,
		TradedQuantity:    request.TradedQuantity,
		TradedValue:       request.TradedValue,
		TotalMarketValue:  request.TotalMarketValue,
	}
	if err := s.repo.CreateObservation(&observation); err != nil {
		return models.IndexObservation{}, err
	}
	return observation, nil
}

// UpdateObservation applies a partial patch, short-circuiting when nothing
// would change
func (s *ObservationService) UpdateObservation(id int64, request ObservationUpdateRequest) (models.IndexObservation, error) {
	observation, err := s.repo.GetObservationByID(id)
	if err == gorm.ErrRecordNotFound {
		return models.IndexObservation{}, ErrObservationNotFound
	}
	if err != nil {
		return models.IndexObservation{}, err
	}

	if !updateNeeded(request, observation) {
		return observation, nil
	}

	if request.Open != nil {
		observation.Open = *request.Open
	}
	if request.Close != nil {
		observation.Close = *request.Close
	}
	if request.High != nil {
		observation.High = *request.High
	}
	if request.Low != nil {
		observation.Low = *request.Low
	}
	if request.Delta != nil {
		observation.Delta = *request.Delta
	}
	if request.PercentChange != nil {
		observation.PercentChange = *request.PercentChange
	}
	if request.TradedQuantity != nil {
		observation.TradedQuantity = *request.TradedQuantity
	}
	if request.TradedValue != nil {
		observation.TradedValue = *request.TradedValue
	}
	if request.TotalMarketValue != nil {
		observation.TotalMarketValue = *request.TotalMarketValue
	}

	if err := s.repo.SaveObservation(&observation); err != nil {
		return models.IndexObservation{}, err
	}
	return observation, nil
}

func updateNeeded(request ObservationUpdateRequest, observation models.IndexObservation) bool {
	if request.Open != nil && !observation.Open.Equal(*request.Open) {
		return true
	}
	if request.Close != nil && !observation.Close.Equal(*request.Close) {
		return true
	}
	if request.High != nil && !observation.High.Equal(*request.High) {
		return true
	}
	if request.Low != nil && !observation.Low.Equal(*request.Low) {
		return true
	}
	if request.Delta != nil && !observation.Delta.Equal(*request.Delta) {
		return true
	}
	if request.PercentChange != nil && !observation.PercentChange.Equal(*request.PercentChange) {
		return true
	}
	if request.TradedQuantity != nil && observation.TradedQuantity != *request.TradedQuantity {
		return true
	}
	if request.TradedValue != nil && observation.TradedValue != *request.TradedValue {
		return true
	}
	return request.TotalMarketValue != nil && observation.TotalMarketValue != *request.TotalMarketValue
}

// DeleteObservation removes an observation by id
func (s *ObservationService) DeleteObservation(id int64) error {
	err := s.repo.DeleteObservation(id)
	if err == gorm.ErrRecordNotFound {
		return ErrObservationNotFound
	}
	return err
}

// ExportObservationsCSV writes the full filtered result set in the
// requested order as CSV. The export consumes the same filter and sort
// shape as the paged listing, without pagination.
func (s *ObservationService) ExportObservationsCSV(w io.Writer, params ObservationListParams) error {
	params.normalize()

	key, err := keyset.Lookup(params.SortField)
	if err != nil {
		return err
	}

	observations, err := s.repo.FindAllSorted(params.filters(), key, params.descending())
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{
		"observationDate", "open", "close", "high", "low", "delta",
		"percentChange", "tradedQuantity", "tradedValue", "totalMarketValue",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := range observations {
		o := &observations[i]
		record := []string{
			o.DateString(),
			o.Open.String(),
			o.Close.String(),
			o.High.String(),
			o.Low.String(),
			o.Delta.String(),
			o.PercentChange.String(),
			strconv.FormatInt(o.TradedQuantity, 10),
			strconv.FormatInt(o.TradedValue, 10),
			strconv.FormatInt(o.TotalMarketValue, 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
