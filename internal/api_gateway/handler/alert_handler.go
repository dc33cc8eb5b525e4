package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// AlertHandler handles HTTP requests for anomaly reporting
type AlertHandler struct {
	alertService service.AlertService
	logger       *slog.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(logger *slog.Logger, alertService service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// List scans the record population and returns the derived alerts. The
// category query parameter narrows to one category.
func (h *AlertHandler) List(c *gin.Context) {
	category := shared.AlertCategory(c.Query("category"))
	switch category {
	case "", shared.AlertCategoryProbeDiscrepancy, shared.AlertCategoryEfficiency,
		shared.AlertCategoryMissingVerification, shared.AlertCategoryUnlinked,
		shared.AlertCategoryResolved:
	default:
		RespondBadRequest(c, "Unknown alert category: "+string(category))
		return
	}

	alerts, err := h.alertService.ListAlerts(c.Request.Context(), category)
	if err != nil {
		h.logger.Error("Failed to list alerts", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
