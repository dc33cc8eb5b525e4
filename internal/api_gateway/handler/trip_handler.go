package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/domain/trip"
)

// TripHandler handles HTTP requests for trip ledger reads
type TripHandler struct {
	tripService service.TripService
	logger      *slog.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(logger *slog.Logger, tripService service.TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

// GetByID retrieves a trip with its cost ledger, returns 404 if not found
func (h *TripHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	t, err := h.tripService.GetTrip(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound{}) {
			RespondNotFound(c, "Trip not found")
			return
		}
		h.logger.Error("Failed to get trip", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{
		"trip":        t,
		"total_costs": t.TotalCosts(),
	})
}
