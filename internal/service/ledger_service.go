// Package service contains the service layer for the Findex API
package service

import (
	"encoding/base64"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
)

// ledgerListStore is the search contract the listing consumes; the
// concrete repository satisfies it and tests substitute fakes.
type ledgerListStore interface {
	SearchLedgerEntries(params repository.LedgerSearchParams) ([]models.SyncLedgerEntry, error)
	CountLedgerEntries(params repository.LedgerSearchParams) (int64, error)
}

// LedgerService serves the sync ledger listing
type LedgerService struct {
	repo ledgerListStore
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{repo: repository.NewLedgerRepository(db)}
}

// LedgerPage is one page of ledger entries. The cursor is an opaque
// base64 wrapper around the last id.
type LedgerPage struct {
	Content       []models.SyncLedgerEntry `json:"content"`
	NextCursor    *string                  `json:"next_cursor"`
	NextIDAfter   *int64                   `json:"next_id_after"`
	Size          int                      `json:"size"`
	TotalElements int64                    `json:"total_elements"`
	HasNext       bool                     `json:"has_next"`
}

type ledgerCursor struct {
	ID int64 `json:"id"`
}

// DecodeLedgerCursor unwraps a ledger listing cursor into the id boundary.
// Malformed cursors decode to nil, restarting from the first page.
func DecodeLedgerCursor(raw string) *int64 {
	if raw == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var c ledgerCursor
	if err := json.Unmarshal(decoded, &c); err != nil {
		return nil
	}
	return &c.ID
}

func encodeLedgerCursor(id int64) string {
	payload, _ := json.Marshal(ledgerCursor{ID: id})
	return base64.StdEncoding.EncodeToString(payload)
}

// ListLedgerEntries lists ledger entries matching the filters, one page at
// a time
func (s *LedgerService) ListLedgerEntries(params repository.LedgerSearchParams) (LedgerPage, error) {
	if params.Size < 1 {
		params.Size = DefaultPageSize
	}

	entries, err := s.repo.SearchLedgerEntries(params)
	if err != nil {
		return LedgerPage{}, err
	}

	hasNext := len(entries) > params.Size
	if hasNext {
		entries = entries[:params.Size]
	}

	total, err := s.repo.CountLedgerEntries(params)
	if err != nil {
		return LedgerPage{}, err
	}

	page := LedgerPage{
		Content:       entries,
		Size:          params.Size,
		TotalElements: total,
		HasNext:       hasNext,
	}
	if hasNext && len(entries) > 0 {
		last := entries[len(entries)-1]
		cursor := encodeLedgerCursor(last.ID)
		page.NextCursor = &cursor
		page.NextIDAfter = &last.ID
	}
	return page, nil
}
