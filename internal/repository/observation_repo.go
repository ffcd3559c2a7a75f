// Package repository contains the repository layer for the Findex API
package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/keyset"
	"github.com/codeit/findexapi/internal/models"
)

// ErrDuplicateObservation is returned when an observation already exists
// for the same definition and date
var ErrDuplicateObservation = errors.New("observation already recorded for this definition and date")

// ObservationRepository is the database repository for index observations
type ObservationRepository struct {
	DB *gorm.DB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *gorm.DB) *ObservationRepository {
	return &ObservationRepository{DB: db}
}

// ExistsByDefinitionAndDate reports whether an observation exists for the
// definition on the given date
func (r *ObservationRepository) ExistsByDefinitionAndDate(definitionID int64, date time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&models.IndexObservation{}).
		Where("index_definition_id = ? AND observation_date = ?", definitionID, date).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check observation existence: %v", err)
	}
	return count > 0, nil
}

// CreateObservation inserts a single observation, rejecting a duplicate
// (definition, date) pair with ErrDuplicateObservation
func (r *ObservationRepository) CreateObservation(observation *models.IndexObservation) error {
	exists, err := r.ExistsByDefinitionAndDate(observation.IndexDefinitionID, time.Time(observation.ObservationDate))
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateObservation
	}
	if err := r.DB.Create(observation).Error; err != nil {
		return fmt.Errorf("failed to create observation: %v", err)
	}
	return nil
}

// GetObservationByID gets one observation by id
func (r *ObservationRepository) GetObservationByID(id int64) (models.IndexObservation, error) {
	var observation models.IndexObservation
	err := r.DB.First(&observation, id).Error
	return observation, err
}

// SaveObservation persists updates to an existing observation
func (r *ObservationRepository) SaveObservation(observation *models.IndexObservation) error {
	if err := r.DB.Save(observation).Error; err != nil {
		return fmt.Errorf("failed to save observation: %v", err)
	}
	return nil
}

// DeleteObservation deletes an observation by id
func (r *ObservationRepository) DeleteObservation(id int64) error {
	result := r.DB.Delete(&models.IndexObservation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete observation %d: %v", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InsertObservations inserts a batch of observations
func (r *ObservationRepository) InsertObservations(observations []models.IndexObservation) (int64, error) {
	if len(observations) == 0 {
		return 0, nil
	}
	result := r.DB.Create(&observations)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert batch into %s: %v", models.IndexObservationsTableName, result.Error)
	}
	return result.RowsAffected, nil
}

// trimPage derives hasNext from a size+1 fetch and drops the overflow row
func trimPage(observations []models.IndexObservation, size int) ([]models.IndexObservation, bool) {
	hasNext := len(observations) > size
	if hasNext {
		observations = observations[:size]
	}
	return observations, hasNext
}

// FindPage executes the planned keyset query, fetching size+1 rows to
// derive hasNext and trimming the overflow row before returning.
func (r *ObservationRepository) FindPage(f keyset.Filters, key keyset.SortKey, descending bool, cursor *keyset.Cursor, size int) ([]models.IndexObservation, bool, error) {
	plan := keyset.Build(f, key, descending, cursor)

	var observations []models.IndexObservation
	query := plan.Apply(r.DB.Model(&models.IndexObservation{})).Limit(size + 1)
	if err := query.Find(&observations).Error; err != nil {
		return nil, false, fmt.Errorf("failed to fetch observation page: %v", err)
	}

	observations, hasNext := trimPage(observations, size)
	return observations, hasNext, nil
}

// CountByFilters counts observations matching the filters, ignoring any
// page boundary
func (r *ObservationRepository) CountByFilters(f keyset.Filters) (int64, error) {
	var count int64
	err := keyset.CountPlan(f).Apply(r.DB.Model(&models.IndexObservation{})).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %v", err)
	}
	return count, nil
}

// FindAllSorted returns the full filtered result set in the requested
// order, without pagination. Used by the CSV export.
func (r *ObservationRepository) FindAllSorted(f keyset.Filters, key keyset.SortKey, descending bool) ([]models.IndexObservation, error) {
	plan := keyset.Build(f, key, descending, nil)

	var observations []models.IndexObservation
	if err := plan.Apply(r.DB.Model(&models.IndexObservation{})).Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sorted observations: %v", err)
	}
	return observations, nil
}

// FindForRanking returns the observations of the given definitions grouped
// by definition, newest first within each group. The ranking aggregator
// depends on exactly this ordering.
func (r *ObservationRepository) FindForRanking(definitionIDs []int64) ([]models.IndexObservation, error) {
	if len(definitionIDs) == 0 {
		return nil, nil
	}
	var observations []models.IndexObservation
	err := r.DB.Where("index_definition_id IN ?", definitionIDs).
		Order("index_definition_id ASC, observation_date DESC, id ASC").
		Find(&observations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations for ranking: %v", err)
	}
	return observations, nil
}
