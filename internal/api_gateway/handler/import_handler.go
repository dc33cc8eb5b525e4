package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fleet-diesel-ledger/internal/api_gateway/middleware"
	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// ImportHandler handles HTTP requests for import batch submission
type ImportHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(logger *slog.Logger, importService service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Submit publishes an import batch for asynchronous processing
func (h *ImportHandler) Submit(c *gin.Context) {
	var req SubmitImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	batch, err := h.importService.SubmitBatch(
		c.Request.Context(),
		actorFrom(c),
		req.Source,
		middleware.GetCorrelationID(c),
		req.Rows,
	)
	if err != nil {
		var validationErr shared.ValidationError
		if errors.As(err, &validationErr) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to submit import batch", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"batch_id": batch.BatchID.String(),
		"rows":     len(batch.Rows),
		"status":   "QUEUED",
	})
}

// Trigger asks the external card provider integration to start an export
func (h *ImportHandler) Trigger(c *gin.Context) {
	var req TriggerImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.importService.Trigger(c.Request.Context(), req.Source); err != nil {
		var triggerErr shared.ErrTriggerFailed
		if errors.As(err, &triggerErr) {
			RespondWithError(c, 502, "TRIGGER_FAILED", triggerErr.Error())
			return
		}
		h.logger.Error("Failed to trigger import", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{"status": "TRIGGERED"})
}
