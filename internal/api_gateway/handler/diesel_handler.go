package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/api_gateway/service"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/domain/trip"
)

// ActorHeader carries the acting user for audit attribution. Authentication
// is handled upstream; an absent header attributes the mutation to "system".
const ActorHeader = "X-Actor"

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// DieselHandler handles HTTP requests for fuel record operations
type DieselHandler struct {
	recordService service.RecordService
	logger        *slog.Logger
}

// NewDieselHandler creates a new fuel record handler
func NewDieselHandler(logger *slog.Logger, recordService service.RecordService) *DieselHandler {
	return &DieselHandler{
		recordService: recordService,
		logger:        logger,
	}
}

// Create records a manual fuel-fill entry
func (h *DieselHandler) Create(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid date: "+req.Date)
		return
	}
	litres, err := decimal.NewFromString(req.LitresFilled)
	if err != nil {
		RespondBadRequest(c, "Invalid litres_filled: "+req.LitresFilled)
		return
	}
	totalCost := decimal.Zero
	if req.TotalCost != "" {
		if totalCost, err = decimal.NewFromString(req.TotalCost); err != nil {
			RespondBadRequest(c, "Invalid total_cost: "+req.TotalCost)
			return
		}
	}

	in := &service.RecordInput{
		FleetNumber:   req.FleetNumber,
		Date:          date,
		DriverName:    req.DriverName,
		FuelStation:   req.FuelStation,
		LitresFilled:  litres,
		TotalCost:     totalCost,
		Currency:      req.Currency,
		KmReading:     req.KmReading,
		PreviousKm:    req.PreviousKm,
		IsReeferUnit:  req.IsReeferUnit,
		HoursOperated: req.HoursOperated,
		Notes:         req.Notes,
	}

	rec, err := h.recordService.CreateRecord(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondCreated(c, rec)
}

// GetByID retrieves a record by its ID, returns 404 if not found
func (h *DieselHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	rec, err := h.recordService.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, rec)
}

// List retrieves a page of records, optionally narrowed to one fleet
func (h *DieselHandler) List(c *gin.Context) {
	var params RecordListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters")
		return
	}

	records, err := h.recordService.ListRecords(c.Request.Context(), params.FleetNumber, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list records", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, records)
}

// Update applies a partial update to a record
func (h *DieselHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := &service.RecordUpdate{
		DriverName:    req.DriverName,
		FuelStation:   req.FuelStation,
		Currency:      req.Currency,
		KmReading:     req.KmReading,
		PreviousKm:    req.PreviousKm,
		HoursOperated: req.HoursOperated,
		Notes:         req.Notes,
	}
	if req.LitresFilled != nil {
		litres, err := decimal.NewFromString(*req.LitresFilled)
		if err != nil {
			RespondBadRequest(c, "Invalid litres_filled: "+*req.LitresFilled)
			return
		}
		in.LitresFilled = &litres
	}
	if req.TotalCost != nil {
		cost, err := decimal.NewFromString(*req.TotalCost)
		if err != nil {
			RespondBadRequest(c, "Invalid total_cost: "+*req.TotalCost)
			return
		}
		in.TotalCost = &cost
	}

	rec, err := h.recordService.UpdateRecord(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Debrief records the staff sign-off on a poor-efficiency fill
func (h *DieselHandler) Debrief(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req DebriefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			RespondBadRequest(c, "Invalid date: "+req.Date)
			return
		}
	}

	rec, err := h.recordService.ApplyDebrief(c.Request.Context(), actorFrom(c), id, date, req.SignedBy, req.Notes)
	if err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Probe stores an in-tank probe reading and/or marks it verified
func (h *DieselHandler) Probe(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Reading == nil && !req.Verify {
		RespondBadRequest(c, "Probe request carries neither a reading nor a verification")
		return
	}

	var reading *decimal.Decimal
	if req.Reading != nil {
		value, err := decimal.NewFromString(*req.Reading)
		if err != nil {
			RespondBadRequest(c, "Invalid reading: "+*req.Reading)
			return
		}
		reading = &value
	}

	rec, err := h.recordService.RecordProbe(c.Request.Context(), actorFrom(c), id, reading, req.Verify)
	if err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Allocate links the record into a trip's cost ledger
func (h *DieselHandler) Allocate(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		RespondBadRequest(c, "Invalid trip ID")
		return
	}

	if err := h.recordService.Allocate(c.Request.Context(), actorFrom(c), id, tripID); err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, gin.H{"record_id": id.String(), "trip_id": tripID.String()})
}

// Deallocate removes the record from its trip ledger
func (h *DieselHandler) Deallocate(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	if err := h.recordService.Deallocate(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondOK(c, gin.H{"record_id": id.String()})
}

// Delete removes the record together with its trip cost entry
func (h *DieselHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	if err := h.recordService.DeleteRecord(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondRecordError(c, err)
		return
	}

	RespondNoContent(c)
}

// Export streams the full record population as CSV
func (h *DieselHandler) Export(c *gin.Context) {
	data, err := h.recordService.ExportCSV(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export records", "error", err)
		RespondInternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="diesel_records.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// respondRecordError maps domain errors onto HTTP status codes
func (h *DieselHandler) respondRecordError(c *gin.Context, err error) {
	var validationErr shared.ValidationError
	switch {
	case errors.Is(err, diesel.ErrRecordNotFound{}):
		RespondNotFound(c, "Fuel record not found")
	case errors.Is(err, trip.ErrTripNotFound{}):
		RespondNotFound(c, "Trip not found")
	case errors.Is(err, diesel.ErrDuplicateRecord{}):
		RespondConflict(c, err.Error())
	case errors.As(err, &diesel.ErrConcurrentModification{}):
		RespondConflict(c, "Record was modified concurrently, retry with fresh data")
	case errors.As(err, &trip.ErrConcurrentModification{}):
		RespondConflict(c, "Trip was modified concurrently, retry with fresh data")
	case errors.Is(err, diesel.ErrAlreadyDebriefed),
		errors.Is(err, trip.ErrDuplicateCostEntry):
		RespondConflict(c, err.Error())
	case errors.As(err, &validationErr),
		errors.Is(err, diesel.ErrNonPositiveLitres),
		errors.Is(err, diesel.ErrEmptyFleetNumber),
		errors.Is(err, diesel.ErrNoHoursOperated):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Record operation failed", "error", err)
		RespondInternalError(c)
	}
}

func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader(ActorHeader); actor != "" {
		return actor
	}
	return "system"
}

func parseIDParam(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid record ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
