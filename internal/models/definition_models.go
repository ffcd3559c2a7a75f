// Package models contains the models for the Findex API
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TableName is the name of the table for index definitions
var IndexDefinitionsTableName = "index_definitions"

// SourceType marks how a record entered the system
type SourceType string

const (
	SourceTypeUser    SourceType = "USER"
	SourceTypeOpenAPI SourceType = "OPEN_API"
)

// IndexDefinition represents one market index tracked by the system.
// (classification, name) is the natural key; the composite unique index
// guards against duplicate definitions from concurrent sync runs.
type IndexDefinition struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Classification     string          `gorm:"size:240;uniqueIndex:idx_definition_natural_key" json:"classification"`
	Name               string          `gorm:"size:240;uniqueIndex:idx_definition_natural_key" json:"name"`
	EmployedItemsCount int             `json:"employed_items_count"`
	BasePointInTime    datatypes.Date  `json:"base_point_in_time"`
	BaseIndex          decimal.Decimal `gorm:"type:numeric(20,4)" json:"base_index"`
	SourceType         SourceType      `gorm:"size:100" json:"source_type"`
	Favorite           bool            `json:"favorite"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the IndexDefinition model
func (IndexDefinition) TableName() string {
	return IndexDefinitionsTableName
}

// NaturalKey returns the (classification, name) dedup key for the definition
func (d *IndexDefinition) NaturalKey() string {
	return d.Classification + "\x00" + d.Name
}
