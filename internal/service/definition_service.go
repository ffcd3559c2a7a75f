// Package service contains the service layer for the Findex API
package service

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
)

// ErrDefinitionNotFound is returned when a definition id does not resolve
var ErrDefinitionNotFound = errors.New("index definition not found")

// DefinitionService manages index definitions
type DefinitionService struct {
	repo *repository.DefinitionRepository
}

// NewDefinitionService creates a new DefinitionService
func NewDefinitionService(db *gorm.DB) *DefinitionService {
	return &DefinitionService{repo: repository.NewDefinitionRepository(db)}
}

// DefinitionCreateRequest is a manual definition entry
type DefinitionCreateRequest struct {
	Classification     string          `json:"classification"`
	Name               string          `json:"name"`
	EmployedItemsCount int             `json:"employed_items_count"`
	BasePointInTime    time.Time       `json:"base_point_in_time"`
	BaseIndex          decimal.Decimal `json:"base_index"`
	Favorite           bool            `json:"favorite"`
}

// DefinitionUpdateRequest is a partial definition patch; nil fields keep
// their prior values. The natural key is immutable and not patchable.
type DefinitionUpdateRequest struct {
	EmployedItemsCount *int             `json:"employed_items_count"`
	BasePointInTime    *time.Time       `json:"base_point_in_time"`
	BaseIndex          *decimal.Decimal `json:"base_index"`
	Favorite           *bool            `json:"favorite"`
}

// CreateDefinition registers a user-entered definition
func (s *DefinitionService) CreateDefinition(request DefinitionCreateRequest) (models.IndexDefinition, error) {
	definition := models.IndexDefinition{
		Classification:     request.Classification,
		Name:               request.Name,
		EmployedItemsCount: request.EmployedItemsCount,
		BasePointInTime:    datatypes.Date(request.BasePointInTime),
		BaseIndex:          request.BaseIndex,
		SourceType:         models.SourceTypeUser,
		Favorite:           request.Favorite,
	}
	if err := s.repo.CreateDefinition(&definition); err != nil {
		return models.IndexDefinition{}, err
	}
	return definition, nil
}

// GetDefinition returns one definition by id
func (s *DefinitionService) GetDefinition(id int64) (models.IndexDefinition, error) {
	definition, err := s.repo.GetDefinitionByID(id)
	if err == gorm.ErrRecordNotFound {
		return models.IndexDefinition{}, ErrDefinitionNotFound
	}
	return definition, err
}

// QueryDefinitions lists definitions by optional classification, name
// substring and favorite flag
func (s *DefinitionService) QueryDefinitions(classification, name string, favorite *bool) ([]models.IndexDefinition, error) {
	return s.repo.QueryDefinitions(classification, name, favorite)
}

// UpdateDefinition applies a partial patch to a definition
func (s *DefinitionService) UpdateDefinition(id int64, request DefinitionUpdateRequest) (models.IndexDefinition, error) {
	definition, err := s.GetDefinition(id)
	if err != nil {
		return models.IndexDefinition{}, err
	}

	if request.EmployedItemsCount != nil {
		definition.EmployedItemsCount = *request.EmployedItemsCount
	}
	if request.BasePointInTime != nil {
		definition.BasePointInTime = datatypes.Date(*request.BasePointInTime)
	}
	if request.BaseIndex != nil {
		definition.BaseIndex = *request.BaseIndex
	}
	if request.Favorite != nil {
		definition.Favorite = *request.Favorite
	}

	if err := s.repo.SaveDefinition(&definition); err != nil {
		return models.IndexDefinition{}, err
	}
	return definition, nil
}

// DeleteDefinition removes a definition together with its observations
func (s *DefinitionService) DeleteDefinition(id int64) error {
	err := s.repo.DeleteDefinition(id)
	if err == gorm.ErrRecordNotFound {
		return ErrDefinitionNotFound
	}
	return err
}
