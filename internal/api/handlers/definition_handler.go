// Package handlers contains the handlers for the API
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/service"
	"github.com/codeit/findexapi/pkg/utils/response"
)

type DefinitionHandler struct {
	DB                *gorm.DB
	DefinitionService *service.DefinitionService
}

func NewDefinitionHandler(db *gorm.DB) *DefinitionHandler {
	return &DefinitionHandler{
		DB:                db,
		DefinitionService: service.NewDefinitionService(db),
	}
}

// createDefinitionRequest is the request body for CreateDefinition
type createDefinitionRequest struct {
	Classification     string `json:"classification"`
	Name               string `json:"name"`
	EmployedItemsCount int    `json:"employed_items_count"`
	BasePointInTime    string `json:"base_point_in_time"`
	BaseIndex          string `json:"base_index"`
	Favorite           bool   `json:"favorite"`
}

// CreateDefinition registers a user-entered index definition
func (h *DefinitionHandler) CreateDefinition(c echo.Context) error {
	var req createDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}
	if len(req.Classification) == 0 || len(req.Name) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`classification` and `name` are required")
	}
	basePoint, err := time.Parse("2006-01-02", req.BasePointInTime)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `base_point_in_time` value, must be a valid date")
	}
	baseIndex, err := decimal.NewFromString(req.BaseIndex)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `base_index` value, must be a decimal number")
	}

	definition, err := h.DefinitionService.CreateDefinition(service.DefinitionCreateRequest{
		Classification:     req.Classification,
		Name:               req.Name,
		EmployedItemsCount: req.EmployedItemsCount,
		BasePointInTime:    basePoint,
		BaseIndex:          baseIndex,
		Favorite:           req.Favorite,
	})
	if err == gorm.ErrDuplicatedKey {
		return response.ErrorResponse(c, http.StatusConflict, "DuplicateDefinition", "An index definition with the same classification and name already exists")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.CreatedResponse(c, definition)
}

// GetDefinition returns one index definition by id
func (h *DefinitionHandler) GetDefinition(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id` value, must be digits")
	}

	definition, err := h.DefinitionService.GetDefinition(id)
	if err == service.ErrDefinitionNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "DefinitionNotFound", "Index definition not found")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, definition)
}

// GetDefinitionsQuery returns definitions for a given classification, name
// and favorite flag
func (h *DefinitionHandler) GetDefinitionsQuery(c echo.Context) error {
	classification := c.QueryParam("classification")
	name := c.QueryParam("name")
	favoriteStr := c.QueryParam("favorite")

	var favorite *bool
	if len(favoriteStr) > 0 {
		value, err := strconv.ParseBool(favoriteStr)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `favorite` value, must be `true` or `false`")
		}
		favorite = &value
	}

	definitions, err := h.DefinitionService.QueryDefinitions(classification, name, favorite)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, definitions)
}

// updateDefinitionRequest is the request body for UpdateDefinition
type updateDefinitionRequest struct {
	EmployedItemsCount *int    `json:"employed_items_count"`
	BasePointInTime    *string `json:"base_point_in_time"`
	BaseIndex          *string `json:"base_index"`
	Favorite           *bool   `json:"favorite"`
}

// UpdateDefinition applies a partial patch to a definition. The
// classification and name are immutable.
func (h *DefinitionHandler) UpdateDefinition(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id` value, must be digits")
	}

	var req updateDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}

	patch := service.DefinitionUpdateRequest{
		EmployedItemsCount: req.EmployedItemsCount,
		Favorite:           req.Favorite,
	}
	if req.BasePointInTime != nil {
		basePoint, err := time.Parse("2006-01-02", *req.BasePointInTime)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `base_point_in_time` value, must be a valid date")
		}
		patch.BasePointInTime = &basePoint
	}
	if req.BaseIndex != nil {
		baseIndex, err := decimal.NewFromString(*req.BaseIndex)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `base_index` value, must be a decimal number")
		}
		patch.BaseIndex = &baseIndex
	}

	definition, err := h.DefinitionService.UpdateDefinition(id, patch)
	if err == service.ErrDefinitionNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "DefinitionNotFound", "Index definition not found")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, definition)
}

// DeleteDefinition removes a definition together with its observations
func (h *DefinitionHandler) DeleteDefinition(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id` value, must be digits")
	}

	err = h.DefinitionService.DeleteDefinition(id)
	if err == service.ErrDefinitionNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "DefinitionNotFound", "Index definition not found")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, map[string]int64{"deleted_id": id})
}

func parseIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
