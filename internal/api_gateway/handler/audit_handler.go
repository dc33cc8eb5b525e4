package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
)

// AuditHandler handles HTTP requests for the read-only audit trail
type AuditHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List retrieves a page of the audit trail, newest first
func (h *AuditHandler) List(c *gin.Context) {
	var params AuditListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid audit list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters")
		return
	}

	entries, total, err := h.auditService.ListEntries(
		c.Request.Context(),
		params.Entity,
		params.EntityID,
		params.Page,
		params.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list audit entries", "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, params.Page, params.PerPage, int(total))
}
