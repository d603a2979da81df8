package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine the server runs: recovery, permissive CORS
// for the dashboard, and every API route.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/units", handler.ListUnits)
		api.GET("/units/:id", handler.GetUnit)
		api.GET("/units/:id/comparables", handler.GetComparables)
		api.POST("/units/:id/optimize", handler.OptimizeUnit)
		api.POST("/batch/optimize", handler.OptimizeBatch)
		api.GET("/summary", handler.GetSummary)
		api.GET("/properties", handler.ListProperties)
		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.UpdateSettings)
		api.POST("/uploads/rent-roll", handler.UploadRentRoll)
		api.POST("/uploads/competition", handler.UploadCompetition)
	}
}
