// Package models contains the models for the Findex API
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TableName is the name of the table for index observations
var IndexObservationsTableName = "index_observations"

// IndexObservation represents one daily data point of an index.
// At most one observation per (definition, date) may be created through
// the manual entry path; the check is made at write time, ingestion
// rows are trusted as delivered by the source.
type IndexObservation struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	IndexDefinitionID int64           `gorm:"not null;index:idx_observation_definition_date" json:"index_definition_id"`
	IndexDefinition   IndexDefinition `gorm:"foreignKey:IndexDefinitionID;constraint:OnDelete:CASCADE" json:"-"`
	ObservationDate   datatypes.Date  `gorm:"index:idx_observation_definition_date" json:"observation_date"`
	SourceType        SourceType      `gorm:"size:100" json:"source_type"`
	Open              decimal.Decimal `gorm:"type:numeric(20,4)" json:"open"`
	Close             decimal.Decimal `gorm:"type:numeric(20,4)" json:"close"`
	High              decimal.Decimal `gorm:"type:numeric(20,4)" json:"high"`
	Low               decimal.Decimal `gorm:"type:numeric(20,4)" json:"low"`
	Delta             decimal.Decimal `gorm:"type:numeric(20,4)" json:"delta"`
	PercentChange     decimal.Decimal `gorm:"type:numeric(10,4)" json:"percent_change"`
	TradedQuantity    int64           `json:"traded_quantity"`
	TradedValue       int64           `json:"traded_value"`
	TotalMarketValue  int64           `json:"total_market_value"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the IndexObservation model
func (IndexObservation) TableName() string {
	return IndexObservationsTableName
}

// DateString returns the observation date in canonical 2006-01-02 form
func (o *IndexObservation) DateString() string {
	return time.Time(o.ObservationDate).Format("2006-01-02")
}
