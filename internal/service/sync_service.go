// Package service contains the service layer for the Findex API
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/config"
	"github.com/codeit/findexapi/internal/marketindex"
	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

const (
	definitionSyncPageSize  = 200
	observationSyncPageSize = 999
	sourceDateLayout        = "20060102"
)

// ErrUnknownDefinitionReference is returned when a sync request names a
// definition id that does not exist. The request is rejected before any
// external call is made.
var ErrUnknownDefinitionReference = errors.New("request references an unknown index definition")

// ExternalSourceError reports a failed paging run against the external
// index source. Pages committed before the failure stay committed.
type ExternalSourceError struct {
	PagesCommitted int
	Err            error
}

func (e *ExternalSourceError) Error() string {
	return fmt.Sprintf("external index source failed after %d committed pages: %v", e.PagesCommitted, e.Err)
}

func (e *ExternalSourceError) Unwrap() error { return e.Err }

// Narrow store contracts the pipelines write through; the concrete
// repositories satisfy them and tests substitute fakes.
type definitionStore interface {
	GetAllDefinitions() ([]models.IndexDefinition, error)
	GetDefinitionsByIDs(ids []int64) ([]models.IndexDefinition, error)
	InsertSyncBatch(definitions []models.IndexDefinition, entries []models.SyncLedgerEntry) (int64, error)
}

type observationStore interface {
	InsertObservations(observations []models.IndexObservation) (int64, error)
}

type ledgerStore interface {
	InsertLedgerEntries(entries []models.SyncLedgerEntry) error
	LatestSuccessfulTargetDate(kind models.JobKind) (time.Time, bool, error)
}

type syncNotifier interface {
	NotifySyncCommitted(kind models.JobKind, units int)
}

type rankCacheInvalidator interface {
	InvalidateRankCache(ctx context.Context)
}

// SyncService runs the two ingestion pipelines against the market index
// source. Pages are requested strictly sequentially: the in-run seen-set
// must be consistent before the next page is processed.
type SyncService struct {
	source       marketindex.Source
	definitions  definitionStore
	observations observationStore
	ledger       ledgerStore
	notifier     syncNotifier
	rankCache    rankCacheInvalidator
	baselineDate string
	now          func() time.Time
}

// NewSyncService creates a new SyncService
func NewSyncService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SyncService {
	return &SyncService{
		source:       marketindex.NewClient(cfg.MarketIndexBaseURL, cfg.MarketIndexServiceKey),
		definitions:  repository.NewDefinitionRepository(db),
		observations: repository.NewObservationRepository(db),
		ledger:       repository.NewLedgerRepository(db),
		notifier:     NewPublishService(db, redisClient, cfg.PostgresDsn),
		rankCache:    NewRankService(db, redisClient),
		baselineDate: cfg.MarketIndexBaselineDate,
		now:          time.Now,
	}
}

// SyncDefinitions pages the external source for index definitions, skips
// natural keys already known, and commits all new definitions plus one
// ledger entry each in a single batch write at the end of the run.
// Running it twice against an unchanged source inserts nothing the second
// time and returns no ledger entries.
func (s *SyncService) SyncDefinitions(ctx context.Context, workerID string) ([]models.SyncLedgerEntry, error) {
	executedAt := s.now()
	targetDate := datatypes.Date(executedAt)

	existing, err := s.definitions.GetAllDefinitions()
	if err != nil {
		return nil, err
	}

	// Seen-set lives for exactly one run; it is rebuilt from storage every
	// time and never cached across runs.
	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].NaturalKey()] = struct{}{}
	}

	asOfDate := s.baselineDate
	if last, ok, err := s.ledger.LatestSuccessfulTargetDate(models.JobKindDefinitionSync); err != nil {
		return nil, err
	} else if ok {
		asOfDate = last.Format(sourceDateLayout)
	}

	var newDefinitions []models.IndexDefinition
	var entries []models.SyncLedgerEntry

	for pageNo := 1; ; pageNo++ {
		items, err := s.source.FetchPage(ctx, pageNo, definitionSyncPageSize, marketindex.Filter{AsOfDate: asOfDate})
		if err != nil {
			s.recordRunFailure(models.JobKindDefinitionSync, workerID, executedAt, targetDate)
			return nil, &ExternalSourceError{PagesCommitted: 0, Err: err}
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			key := item.NaturalKey()
			if _, ok := seen[key]; ok {
				continue
			}

			definition, err := definitionFromItem(item)
			if err != nil {
				s.recordRunFailure(models.JobKindDefinitionSync, workerID, executedAt, targetDate)
				return nil, fmt.Errorf("failed to parse source item %q: %v", item.Name, err)
			}

			newDefinitions = append(newDefinitions, definition)
			entries = append(entries, models.SyncLedgerEntry{
				JobKind:    models.JobKindDefinitionSync,
				ExecutedAt: executedAt,
				TargetDate: targetDate,
				Worker:     workerID,
				Outcome:    models.OutcomeSuccess,
			})
			seen[key] = struct{}{}
		}
	}

	if _, err := s.definitions.InsertSyncBatch(newDefinitions, entries); err != nil {
		return nil, err
	}

	if len(newDefinitions) > 0 && s.notifier != nil {
		s.notifier.NotifySyncCommitted(models.JobKindDefinitionSync, len(newDefinitions))
	}

	zaplogger.Info("Definition sync completed", zaplogger.Fields{
		"worker":          workerID,
		"new_definitions": len(newDefinitions),
	})

	if entries == nil {
		entries = []models.SyncLedgerEntry{}
	}
	return entries, nil
}

// SyncObservations pages the external source over the requested date range
// and persists the observations of the requested definitions, committing
// batch-per-page. Every supplied id must resolve before any external call;
// one ledger entry is recorded per definition touched by the run.
func (s *SyncService) SyncObservations(ctx context.Context, workerID string, definitionIDs []int64, dateFrom, dateTo time.Time) ([]models.SyncLedgerEntry, error) {
	executedAt := s.now()
	targetDate := datatypes.Date(executedAt)

	definitions, err := s.definitions.GetDefinitionsByIDs(definitionIDs)
	if err != nil {
		return nil, err
	}
	if len(definitions) != len(uniqueIDs(definitionIDs)) {
		return nil, ErrUnknownDefinitionReference
	}

	allowed := make(map[string]*models.IndexDefinition, len(definitions))
	for i := range definitions {
		allowed[definitions[i].NaturalKey()] = &definitions[i]
	}

	filter := marketindex.Filter{
		DateFrom: dateFrom.Format(sourceDateLayout),
		DateTo:   dateTo.Format(sourceDateLayout),
	}

	touched := make(map[int64]bool)
	var touchedOrder []int64
	pagesCommitted := 0

	for pageNo := 1; ; pageNo++ {
		items, err := s.source.FetchPage(ctx, pageNo, observationSyncPageSize, filter)
		if err != nil {
			s.recordRunFailure(models.JobKindObservationSync, workerID, executedAt, targetDate)
			return nil, &ExternalSourceError{PagesCommitted: pagesCommitted, Err: err}
		}
		if len(items) == 0 {
			break
		}

		var batch []models.IndexObservation
		for _, item := range items {
			definition, ok := allowed[item.NaturalKey()]
			if !ok {
				continue
			}

			observation, err := observationFromItem(item, definition.ID)
			if err != nil {
				s.recordRunFailure(models.JobKindObservationSync, workerID, executedAt, targetDate)
				return nil, fmt.Errorf("failed to parse source item %q %s: %v", item.Name, item.ObservationDate, err)
			}
			batch = append(batch, observation)

			if !touched[definition.ID] {
				touched[definition.ID] = true
				touchedOrder = append(touchedOrder, definition.ID)
			}
		}

		// Each page commits on its own; a later failure never rolls back
		// pages that already landed.
		if _, err := s.observations.InsertObservations(batch); err != nil {
			s.recordRunFailure(models.JobKindObservationSync, workerID, executedAt, targetDate)
			return nil, err
		}
		pagesCommitted++
	}

	entries := make([]models.SyncLedgerEntry, 0, len(touchedOrder))
	for _, id := range touchedOrder {
		definitionID := id
		entries = append(entries, models.SyncLedgerEntry{
			JobKind:           models.JobKindObservationSync,
			IndexDefinitionID: &definitionID,
			ExecutedAt:        executedAt,
			TargetDate:        targetDate,
			Worker:            workerID,
			Outcome:           models.OutcomeSuccess,
		})
	}
	if err := s.ledger.InsertLedgerEntries(entries); err != nil {
		return nil, err
	}

	if s.rankCache != nil {
		s.rankCache.InvalidateRankCache(ctx)
	}
	if pagesCommitted > 0 && s.notifier != nil {
		s.notifier.NotifySyncCommitted(models.JobKindObservationSync, len(touchedOrder))
	}

	zaplogger.Info("Observation sync completed", zaplogger.Fields{
		"worker":          workerID,
		"pages_committed": pagesCommitted,
		"definitions":     len(touchedOrder),
	})

	return entries, nil
}

// recordRunFailure appends a single failure ledger entry for an aborted
// run. The definition id stays nil: the failure happened before a specific
// index was resolved.
func (s *SyncService) recordRunFailure(kind models.JobKind, workerID string, executedAt time.Time, targetDate datatypes.Date) {
	entry := models.SyncLedgerEntry{
		JobKind:    kind,
		ExecutedAt: executedAt,
		TargetDate: targetDate,
		Worker:     workerID,
		Outcome:    models.OutcomeFailure,
	}
	if err := s.ledger.InsertLedgerEntries([]models.SyncLedgerEntry{entry}); err != nil {
		zaplogger.Error("Failed to record sync run failure", zaplogger.Fields{
			"job_kind": string(kind),
			"error":    err.Error(),
		})
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// definitionFromItem maps one source item to a new definition. The source
// is assumed well-formed: an unparsable field fails the whole run.
func definitionFromItem(item marketindex.Item) (models.IndexDefinition, error) {
	basePoint, err := time.Parse(sourceDateLayout, item.BasePointInTime)
	if err != nil {
		return models.IndexDefinition{}, fmt.Errorf("bad basePointInTime %q: %v", item.BasePointInTime, err)
	}
	employedItemsCount, err := strconv.Atoi(item.EmployedItemsCount)
	if err != nil {
		return models.IndexDefinition{}, fmt.Errorf("bad employedItemsCount %q: %v", item.EmployedItemsCount, err)
	}
	baseIndex, err := decimal.NewFromString(item.BaseIndex)
	if err != nil {
		return models.IndexDefinition{}, fmt.Errorf("bad baseIndex %q: %v", item.BaseIndex, err)
	}

	return models.IndexDefinition{
		Classification:     item.Classification,
		Name:               item.Name,
		EmployedItemsCount: employedItemsCount,
		BasePointInTime:    datatypes.Date(basePoint),
		BaseIndex:          baseIndex,
		SourceType:         models.SourceTypeOpenAPI,
		Favorite:           false,
	}, nil
}

// observationFromItem maps one source item to an observation row bound to
// its resolved definition
func observationFromItem(item marketindex.Item, definitionID int64) (models.IndexObservation, error) {
	observationDate, err := time.Parse(sourceDateLayout, item.ObservationDate)
	if err != nil {
		return models.IndexObservation{}, fmt.Errorf("bad observationDate %q: %v", item.ObservationDate, err)
	}

	decimals := make([]decimal.Decimal, 6)
	for i, raw := range []string{item.Open, item.Close, item.High, item.Low, item.Delta, item.PercentChange} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return models.IndexObservation{}, fmt.Errorf("bad decimal value %q: %v", raw, err)
		}
		decimals[i] = d
	}

	integers := make([]int64, 3)
	for i, raw := range []string{item.TradedQuantity, item.TradedValue, item.TotalMarketValue} {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.IndexObservation{}, fmt.Errorf("bad integer value %q: %v", raw, err)
		}
		integers[i] = n
	}

	return models.IndexObservation{
		IndexDefinitionID: definitionID,
		ObservationDate:   datatypes.Date(observationDate),
		SourceType:        models.SourceTypeOpenAPI,
		Open:              decimals[0],
		Close:             decimals[1],
		High:              decimals[2],
		Low:               decimals[3],
		Delta:             decimals[4],
		PercentChange:     decimals[5],
		TradedQuantity:    integers[0],
		TradedValue:       integers[1],
		TotalMarketValue:  integers[2],
	}, nil
}
