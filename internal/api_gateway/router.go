package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleet-diesel-ledger/internal/api_gateway/handler"
	"github.com/fleet-diesel-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	dieselHandler *handler.DieselHandler,
	tripHandler *handler.TripHandler,
	alertHandler *handler.AlertHandler,
	importHandler *handler.ImportHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Import pipeline
		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.Submit)
			imports.POST("/trigger", importHandler.Trigger)
		}

		// Fuel record operations
		records := v1.Group("/diesel-records")
		{
			records.POST("", dieselHandler.Create)
			records.GET("", dieselHandler.List)
			records.GET("/export", dieselHandler.Export)
			records.GET("/:id", dieselHandler.GetByID)
			records.PUT("/:id", dieselHandler.Update)
			records.DELETE("/:id", dieselHandler.Delete)
			records.POST("/:id/debrief", dieselHandler.Debrief)
			records.PUT("/:id/probe", dieselHandler.Probe)
			records.POST("/:id/allocate", dieselHandler.Allocate)
			records.POST("/:id/deallocate", dieselHandler.Deallocate)
		}

		// Trip ledger reads
		v1.GET("/trips/:id", tripHandler.GetByID)

		// Derived anomaly reporting
		v1.GET("/alerts", alertHandler.List)

		// Read-only audit trail
		v1.GET("/audit-log", auditHandler.List)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
