// Package repository contains the repository layer for the Findex API
package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
)

// LedgerRepository is the database repository for sync ledger entries
type LedgerRepository struct {
	DB *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// LedgerSearchParams filters a ledger listing. IDAfter is the keyset
// boundary; Size is the page size.
type LedgerSearchParams struct {
	JobKind           models.JobKind
	IndexDefinitionID *int64
	TargetDateFrom    *time.Time
	TargetDateTo      *time.Time
	Worker            string
	ExecutedAtFrom    *time.Time
	ExecutedAtTo      *time.Time
	Outcome           models.Outcome
	IDAfter           *int64
	SortDescending    bool
	Size              int
}

// InsertLedgerEntries appends a batch of ledger entries
func (r *LedgerRepository) InsertLedgerEntries(entries []models.SyncLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.DB.Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to insert batch into %s: %v", models.SyncLedgerTableName, err)
	}
	return nil
}

// LatestSuccessfulTargetDate returns the most recent target date among
// successful entries of the given kind, with ok=false when none exist
func (r *LedgerRepository) LatestSuccessfulTargetDate(kind models.JobKind) (time.Time, bool, error) {
	var entry models.SyncLedgerEntry
	err := r.DB.Where("job_kind = ? AND outcome = ?", kind, models.OutcomeSuccess).
		Order("target_date DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest target date: %v", err)
	}
	return time.Time(entry.TargetDate), true, nil
}

func (r *LedgerRepository) buildSearchQuery(params LedgerSearchParams) *gorm.DB {
	query := r.DB.Model(&models.SyncLedgerEntry{})

	if params.JobKind != "" {
		query = query.Where("job_kind = ?", params.JobKind)
	}
	if params.IndexDefinitionID != nil {
		query = query.Where("index_definition_id = ?", *params.IndexDefinitionID)
	}
	if params.TargetDateFrom != nil {
		query = query.Where("target_date >= ?", *params.TargetDateFrom)
	}
	if params.TargetDateTo != nil {
		query = query.Where("target_date <= ?", *params.TargetDateTo)
	}
	if params.Worker != "" {
		query = query.Where("worker = ?", params.Worker)
	}
	if params.ExecutedAtFrom != nil {
		query = query.Where("executed_at >= ?", *params.ExecutedAtFrom)
	}
	if params.ExecutedAtTo != nil {
		query = query.Where("executed_at <= ?", *params.ExecutedAtTo)
	}
	if params.Outcome != "" {
		query = query.Where("outcome = ?", params.Outcome)
	}

	return query
}

// idBoundaryExpr returns the keyset boundary matching the listing's sort
// direction: descending pages advance toward smaller ids, so the boundary
// operator must flip with the order or the cursor never moves.
func idBoundaryExpr(descending bool) string {
	if descending {
		return "id < ?"
	}
	return "id > ?"
}

// SearchLedgerEntries lists ledger entries for the filters, fetching
// size+1 rows so the caller can derive hasNext
func (r *LedgerRepository) SearchLedgerEntries(params LedgerSearchParams) ([]models.SyncLedgerEntry, error) {
	query := r.buildSearchQuery(params)

	if params.IDAfter != nil {
		query = query.Where(idBoundaryExpr(params.SortDescending), *params.IDAfter)
	}

	order := "id ASC"
	if params.SortDescending {
		order = "id DESC"
	}

	var entries []models.SyncLedgerEntry
	if err := query.Order(order).Limit(params.Size + 1).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to search ledger entries: %v", err)
	}
	return entries, nil
}

// CountLedgerEntries counts ledger entries for the filters, ignoring the
// id boundary
func (r *LedgerRepository) CountLedgerEntries(params LedgerSearchParams) (int64, error) {
	var count int64
	if err := r.buildSearchQuery(params).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %v", err)
	}
	return count, nil
}
