// Package repository contains the repository layer for the Findex API
package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
)

// DefinitionRepository is the database repository for index definitions
type DefinitionRepository struct {
	DB *gorm.DB
}

// NewDefinitionRepository creates a new definition repository
func NewDefinitionRepository(db *gorm.DB) *DefinitionRepository {
	return &DefinitionRepository{DB: db}
}

// GetAllDefinitions gets all index definitions
func (r *DefinitionRepository) GetAllDefinitions() ([]models.IndexDefinition, error) {
	var definitions []models.IndexDefinition
	err := r.DB.Find(&definitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get all definitions: %v", err)
	}
	return definitions, nil
}

// GetDefinitionByID gets one definition by id
func (r *DefinitionRepository) GetDefinitionByID(id int64) (models.IndexDefinition, error) {
	var definition models.IndexDefinition
	err := r.DB.First(&definition, id).Error
	return definition, err
}

// GetDefinitionsByIDs gets the definitions for a list of ids
func (r *DefinitionRepository) GetDefinitionsByIDs(ids []int64) ([]models.IndexDefinition, error) {
	var definitions []models.IndexDefinition
	err := r.DB.Where("id IN ?", ids).Find(&definitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get definitions by ids: %v", err)
	}
	return definitions, nil
}

// QueryDefinitions queries definitions by optional classification, name
// substring and favorite flag
func (r *DefinitionRepository) QueryDefinitions(classification, name string, favorite *bool) ([]models.IndexDefinition, error) {
	query := r.DB.Model(&models.IndexDefinition{})

	if classification != "" {
		query = query.Where("classification = ?", classification)
	}
	if name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if favorite != nil {
		query = query.Where("favorite = ?", *favorite)
	}

	var definitions []models.IndexDefinition
	if err := query.Order("classification ASC, name ASC").Find(&definitions).Error; err != nil {
		return nil, fmt.Errorf("failed to query definitions: %v", err)
	}
	return definitions, nil
}

// CreateDefinition inserts a single definition. A natural-key collision
// surfaces as gorm.ErrDuplicatedKey so callers can reject it as a conflict.
func (r *DefinitionRepository) CreateDefinition(definition *models.IndexDefinition) error {
	if err := r.DB.Create(definition).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return gorm.ErrDuplicatedKey
		}
		return fmt.Errorf("failed to create definition: %v", err)
	}
	return nil
}

// SaveDefinition persists updates to an existing definition
func (r *DefinitionRepository) SaveDefinition(definition *models.IndexDefinition) error {
	if err := r.DB.Save(definition).Error; err != nil {
		return fmt.Errorf("failed to save definition: %v", err)
	}
	return nil
}

// DeleteDefinition deletes a definition; owned observations cascade with it
func (r *DefinitionRepository) DeleteDefinition(id int64) error {
	result := r.DB.Delete(&models.IndexDefinition{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete definition %d: %v", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InsertSyncBatch inserts new definitions and their ledger entries in one
// transaction. Entries are matched to definitions by slice position, so the
// ledger rows pick up the ids assigned on insert.
func (r *DefinitionRepository) InsertSyncBatch(definitions []models.IndexDefinition, entries []models.SyncLedgerEntry) (int64, error) {
	if len(definitions) == 0 {
		return 0, nil
	}
	if len(entries) != len(definitions) {
		return 0, fmt.Errorf("sync batch mismatch: %d definitions, %d ledger entries", len(definitions), len(entries))
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&definitions).Error; err != nil {
			return fmt.Errorf("failed to insert definitions batch: %v", err)
		}
		for i := range entries {
			entries[i].IndexDefinitionID = &definitions[i].ID
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to insert ledger batch: %v", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(definitions)), nil
}
