package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/service"
	"github.com/codeit/findexapi/pkg/utils/response"
)

type performanceRanker interface {
	RankPerformance(ctx context.Context, selector service.RankSelector) ([]service.PerformanceRow, error)
}

type RankHandler struct {
	DB          *gorm.DB
	RankService performanceRanker
}

func NewRankHandler(db *gorm.DB, redisClient *redis.Client) *RankHandler {
	return &RankHandler{
		DB:          db,
		RankService: service.NewRankService(db, redisClient),
	}
}

// GetPerformanceRank returns the trailing-window performance ranking for
// the selected definitions, best fluctuation rate first
func (h *RankHandler) GetPerformanceRank(c echo.Context) error {
	selector := service.RankSelector{
		Classification: c.QueryParam("classification"),
		Name:           c.QueryParam("name"),
	}

	if idStr := c.QueryParam("index_definition_id"); len(idStr) > 0 {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `index_definition_id` value, must be digits")
		}
		selector.IndexDefinitionID = &id
	}
	if limitStr := c.QueryParam("limit"); len(limitStr) > 0 {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `limit` value, must be digits")
		}
		selector.Limit = limit
	}

	rows, err := h.RankService.RankPerformance(c.Request().Context(), selector)
	if err != nil {
		if err == service.ErrDefinitionNotFound {
			return response.ErrorResponse(c, http.StatusNotFound, "DefinitionNotFound", "Index definition not found")
		}
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
	}
	return response.SuccessResponse(c, rows)
}
