// Package api contains the API routes for the Findex API
package api

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/codeit/findexapi/internal/api/handlers"
	"github.com/codeit/findexapi/internal/config"
	"github.com/codeit/findexapi/pkg/utils/response"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute)

	// Index definition routes
	definitionHandler := handlers.NewDefinitionHandler(db)
	definitionGroup := api.Group("/index-definitions")
	definitionGroup.POST("", definitionHandler.CreateDefinition)
	definitionGroup.GET("", definitionHandler.GetDefinitionsQuery)
	definitionGroup.GET("/:id", definitionHandler.GetDefinition)
	definitionGroup.PATCH("/:id", definitionHandler.UpdateDefinition)
	definitionGroup.DELETE("/:id", definitionHandler.DeleteDefinition)

	// Index observation routes
	observationHandler := handlers.NewObservationHandler(db)
	observationGroup := api.Group("/index-observations")
	observationGroup.GET("", observationHandler.GetObservationsList)
	observationGroup.GET("/export-csv", observationHandler.ExportObservationsCSV)
	observationGroup.POST("", observationHandler.CreateObservation)
	observationGroup.PATCH("/:id", observationHandler.UpdateObservation)
	observationGroup.DELETE("/:id", observationHandler.DeleteObservation)

	// Sync job routes
	syncHandler := handlers.NewSyncHandler(db, redisClient, cfg)
	syncGroup := api.Group("/sync-jobs")
	syncGroup.POST("/index-definitions", syncHandler.SyncDefinitions)
	syncGroup.POST("/index-observations", syncHandler.SyncObservations)
	syncGroup.GET("", syncHandler.GetLedgerEntries)

	// Performance rank routes
	rankHandler := handlers.NewRankHandler(db, redisClient)
	api.GET("/index-performances/rank", rankHandler.GetPerformanceRank)
}

// indexRoute sets up the index route for the API
func indexRoute(c echo.Context) error {
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
	return response.SuccessResponse(c, message)
}
