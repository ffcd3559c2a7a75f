package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/config"
	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/internal/service"
	"github.com/codeit/findexapi/pkg/utils/response"
)

type SyncHandler struct {
	DB            *gorm.DB
	SyncService   *service.SyncService
	LedgerService *service.LedgerService
}

func NewSyncHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SyncHandler {
	return &SyncHandler{
		DB:            db,
		SyncService:   service.NewSyncService(db, redisClient, cfg),
		LedgerService: service.NewLedgerService(db),
	}
}

// SyncDefinitions runs the definition sync pipeline. The caller's IP is
// recorded as the worker on every ledger entry of the run.
func (h *SyncHandler) SyncDefinitions(c echo.Context) error {
	entries, err := h.SyncService.SyncDefinitions(c.Request().Context(), c.RealIP())
	if err != nil {
		var sourceErr *service.ExternalSourceError
		if errors.As(err, &sourceErr) {
			return response.ErrorResponse(c, http.StatusBadGateway, "ExternalSourceFailure", sourceErr.Error())
		}
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, entries)
}

// syncObservationsRequest is the request body for SyncObservations
type syncObservationsRequest struct {
	IndexDefinitionIDs []int64 `json:"index_definition_ids"`
	DateFrom           string  `json:"date_from"`
	DateTo             string  `json:"date_to"`
}

// SyncObservations runs the observation sync pipeline for the requested
// definitions over the requested date range
func (h *SyncHandler) SyncObservations(c echo.Context) error {
	var req syncObservationsRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}
	if len(req.IndexDefinitionIDs) == 0 {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`index_definition_ids` is required")
	}
	dateFrom, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date_from` value, must be a valid date")
	}
	dateTo, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `date_to` value, must be a valid date")
	}
	if dateTo.Before(dateFrom) {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "`date_to` must not be before `date_from`")
	}

	entries, err := h.SyncService.SyncObservations(c.Request().Context(), c.RealIP(), req.IndexDefinitionIDs, dateFrom, dateTo)
	if err == service.ErrUnknownDefinitionReference {
		return response.ErrorResponse(c, http.StatusBadRequest, "UnknownDefinitionReference", "Request references an unknown index definition")
	}
	if err != nil {
		var sourceErr *service.ExternalSourceError
		if errors.As(err, &sourceErr) {
			return response.ErrorResponse(c, http.StatusBadGateway, "ExternalSourceFailure", sourceErr.Error())
		}
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, entries)
}

// GetLedgerEntries returns one page of the sync ledger, filtered by job
// kind, definition, worker, outcome and date ranges
func (h *SyncHandler) GetLedgerEntries(c echo.Context) error {
	params := repository.LedgerSearchParams{
		Worker:         c.QueryParam("worker"),
		SortDescending: c.QueryParam("sort_direction") != "asc",
		IDAfter:        service.DecodeLedgerCursor(c.QueryParam("cursor")),
	}

	if kind := c.QueryParam("job_kind"); len(kind) > 0 {
		if kind != string(models.JobKindDefinitionSync) && kind != string(models.JobKindObservationSync) {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `job_kind` value, must be `definition-sync` or `observation-sync`")
		}
		params.JobKind = models.JobKind(kind)
	}
	if outcome := c.QueryParam("outcome"); len(outcome) > 0 {
		if outcome != string(models.OutcomeSuccess) && outcome != string(models.OutcomeFailure) {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `outcome` value, must be `success` or `failure`")
		}
		params.Outcome = models.Outcome(outcome)
	}
	if idStr := c.QueryParam("index_definition_id"); len(idStr) > 0 {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `index_definition_id` value, must be digits")
		}
		params.IndexDefinitionID = &id
	}
	if sizeStr := c.QueryParam("size"); len(sizeStr) > 0 {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `size` value, must be digits")
		}
		params.Size = size
	}

	dateParams := map[string]**time.Time{
		"target_date_from": &params.TargetDateFrom,
		"target_date_to":   &params.TargetDateTo,
		"executed_at_from": &params.ExecutedAtFrom,
		"executed_at_to":   &params.ExecutedAtTo,
	}
	for name, target := range dateParams {
		raw := c.QueryParam(name)
		if len(raw) == 0 {
			continue
		}
		value, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `"+name+"` value, must be a valid date")
		}
		*target = &value
	}

	page, err := h.LedgerService.ListLedgerEntries(params)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, page)
}
