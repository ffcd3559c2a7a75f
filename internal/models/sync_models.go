// Package models contains the models for the Findex API
package models

import (
	"time"

	"gorm.io/datatypes"
)

// TableName is the name of the table for sync ledger entries
var SyncLedgerTableName = "sync_ledger"

// JobKind identifies which ingestion pipeline produced a ledger entry
type JobKind string

const (
	JobKindDefinitionSync  JobKind = "definition-sync"
	JobKindObservationSync JobKind = "observation-sync"
)

// Outcome records whether an ingestion unit succeeded
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// SyncLedgerEntry is the append-only audit record of one ingestion unit.
// IndexDefinitionID is nil when the run failed before an index was resolved.
// Entries are never updated or deleted.
type SyncLedgerEntry struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	JobKind           JobKind        `gorm:"size:100;index" json:"job_kind"`
	IndexDefinitionID *int64         `gorm:"index" json:"index_definition_id"`
	ExecutedAt        time.Time      `gorm:"index" json:"executed_at"`
	TargetDate        datatypes.Date `json:"target_date"`
	Worker            string         `gorm:"size:100" json:"worker"`
	Outcome           Outcome        `gorm:"size:20" json:"outcome"`
}

// TableName specifies the table name for the SyncLedgerEntry model
func (SyncLedgerEntry) TableName() string {
	return SyncLedgerTableName
}
