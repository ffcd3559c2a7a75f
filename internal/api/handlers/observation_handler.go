package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/keyset"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/internal/service"
	"github.com/codeit/findexapi/pkg/utils/response"
)

type ObservationHandler struct {
	DB                 *gorm.DB
	ObservationService *service.ObservationService
}

func NewObservationHandler(db *gorm.DB) *ObservationHandler {
	return &ObservationHandler{
		DB:                 db,
		ObservationService: service.NewObservationService(db),
	}
}

// observationListParams parses the shared filter, sort and cursor query
// params of the list and export endpoints. A non-empty second return value
// is the input error message.
func observationListParams(c echo.Context) (service.ObservationListParams, string) {
	params := service.ObservationListParams{
		SortField:     c.QueryParam("sort_field"),
		SortDirection: c.QueryParam("sort_direction"),
		Cursor:        c.QueryParam("cursor"),
	}

	if idStr := c.QueryParam("index_definition_id"); len(idStr) > 0 {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return params, "Invalid `index_definition_id` value, must be digits"
		}
		params.IndexDefinitionID = &id
	}
	if startStr := c.QueryParam("start_date"); len(startStr) > 0 {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return params, "Invalid `start_date` value, must be a valid date"
		}
		params.StartDate = &start
	}
	if endStr := c.QueryParam("end_date"); len(endStr) > 0 {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return params, "Invalid `end_date` value, must be a valid date"
		}
		params.EndDate = &end
	}
	if sizeStr := c.QueryParam("size"); len(sizeStr) > 0 {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return params, "Invalid `size` value, must be digits"
		}
		params.Size = size
	}
	return params, ""
}

// GetObservationsList returns one keyset-paginated page of observations
func (h *ObservationHandler) GetObservationsList(c echo.Context) error {
	params, inputErr := observationListParams(c)
	if len(inputErr) > 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", inputErr)
	}

	page, err := h.ObservationService.ListObservations(params)
	if err == keyset.ErrUnknownSortField {
		return response.ErrorResponse(c, http.StatusBadRequest, "UnknownSortField", "Invalid `sort_field` value")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, page)
}

// ExportObservationsCSV streams the full filtered result set as a CSV file
func (h *ObservationHandler) ExportObservationsCSV(c echo.Context) error {
	params, inputErr := observationListParams(c)
	if len(inputErr) > 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", inputErr)
	}

	// Validate the sort field before the response status is committed
	if len(params.SortField) > 0 {
		if _, err := keyset.Lookup(params.SortField); err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "UnknownSortField", "Invalid `sort_field` value")
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="index-observations.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	return h.ObservationService.ExportObservationsCSV(c.Response(), params)
}

// createObservationRequest is the request body for CreateObservation
type createObservationRequest struct {
	IndexDefinitionID int64  `json:"index_definition_id"`
	ObservationDate   string `json:"observation_date"`
	Open              string `json:"open"`
	Close             string `json:"close"`
	High              string `json:"high"`
	Low               string `json:"low"`
	Delta             string `json:"delta"`
	PercentChange     string `json:"percent_change"`
	TradedQuantity    int64  `json:"traded_quantity"`
	TradedValue       int64  `json:"traded_value"`
	TotalMarketValue  int64  `json:"total_market_value"`
}

// CreateObservation registers a user-entered observation
func (h *ObservationHandler) CreateObservation(c echo.Context) error {
	var req createObservationRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}
	if req.IndexDefinitionID == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`index_definition_id` is required")
	}
	observationDate, err := time.Parse("2006-01-02", req.ObservationDate)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `observation_date` value, must be a valid date")
	}

	request := service.ObservationCreateRequest{
		IndexDefinitionID: req.IndexDefinitionID,
		ObservationDate:   observationDate,
		TradedQuantity:    req.TradedQuantity,
		TradedValue:       req.TradedValue,
		TotalMarketValue:  req.TotalMarketValue,
	}
	decimalFields := map[string]*decimal.Decimal{
		"open": &request.Open, "close": &request.Close, "high": &request.High,
		"low": &request.Low, "delta": &request.Delta, "percent_change": &request.PercentChange,
	}
	rawValues := map[string]string{
		"open": req.Open, "close": req.Close, "high": req.High,
		"low": req.Low, "delta": req.Delta, "percent_change": req.PercentChange,
	}
	for name, target := range decimalFields {
		value, err := decimal.NewFromString(rawValues[name])
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `"+name+"` value, must be a decimal number")
		}
		*target = value
	}

	observation, err := h.ObservationService.CreateObservation(request)
	if err == service.ErrDefinitionNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "DefinitionNotFound", "Index definition not found")
	}
	if err == repository.ErrDuplicateObservation {
		return response.ErrorResponse(c, http.StatusConflict, "DuplicateObservation", "An observation for this definition and date already exists")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.CreatedResponse(c, observation)
}

// updateObservationRequest is the request body for UpdateObservation
type updateObservationRequest struct {
	Open             *string `json:"open"`
	Close            *string `json:"close"`
	High             *string `json:"high"`
	Low              *string `json:"low"`
	Delta            *string `json:"delta"`
	PercentChange    *string `json:"percent_change"`
	TradedQuantity   *int64  `json:"traded_quantity"`
	TradedValue      *int64  `json:"traded_value"`
	TotalMarketValue *int64  `json:"total_market_value"`
}

// UpdateObservation applies a partial patch to an observation
func (h *ObservationHandler) UpdateObservation(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id` value, must be digits")
	}

	var req updateObservationRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}

	patch := service.ObservationUpdateRequest{
		TradedQuantity:   req.TradedQuantity,
		TradedValue:      req.TradedValue,
		TotalMarketValue: req.TotalMarketValue,
	}
	decimalFields := map[string]struct {
		raw    *string
		target **decimal.Decimal
	}{
		"open":           {req.Open, &patch.Open},
		"close":          {req.Close, &patch.Close},
		"high":           {req.High, &patch.High},
		"low":            {req.Low, &patch.Low},
		"delta":          {req.Delta, &patch.Delta},
		"percent_change": {req.PercentChange, &patch.PercentChange},
	}
	for name, field := range decimalFields {
		if field.raw == nil {
			continue
		}
		value, err := decimal.NewFromString(*field.raw)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `"+name+"` value, must be a decimal number")
		}
		*field.target = &value
	}

	observation, err := h.ObservationService.UpdateObservation(id, patch)
	if err == service.ErrObservationNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "ObservationNotFound", "Index observation not found")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, observation)
}

// DeleteObservation removes an observation by id
func (h *ObservationHandler) DeleteObservation(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id` value, must be digits")
	}

	err = h.ObservationService.DeleteObservation(id)
	if err == service.ErrObservationNotFound {
		return response.ErrorResponse(c, http.StatusNotFound, "ObservationNotFound", "Index observation not found")
	}
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, map[string]int64{"deleted_id": id})
}
