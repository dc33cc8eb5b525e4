package handler

import "github.com/fleet-diesel-ledger/internal/domain/shared"

// CreateRecordRequest represents a manual fuel-fill entry
type CreateRecordRequest struct {
	FleetNumber   string  `json:"fleet_number" binding:"required"`
	Date          string  `json:"date" binding:"required"`
	DriverName    string  `json:"driver_name"`
	FuelStation   string  `json:"fuel_station"`
	LitresFilled  string  `json:"litres_filled" binding:"required"`
	TotalCost     string  `json:"total_cost"`
	Currency      string  `json:"currency"`
	KmReading     float64 `json:"km_reading"`
	PreviousKm    float64 `json:"previous_km_reading"`
	IsReeferUnit  bool    `json:"is_reefer_unit"`
	HoursOperated float64 `json:"hours_operated"`
	Notes         string  `json:"notes"`
}

// UpdateRecordRequest represents a partial update of an existing record.
// Absent fields are left unchanged.
type UpdateRecordRequest struct {
	DriverName    *string  `json:"driver_name"`
	FuelStation   *string  `json:"fuel_station"`
	LitresFilled  *string  `json:"litres_filled"`
	TotalCost     *string  `json:"total_cost"`
	Currency      *string  `json:"currency"`
	KmReading     *float64 `json:"km_reading"`
	PreviousKm    *float64 `json:"previous_km_reading"`
	HoursOperated *float64 `json:"hours_operated"`
	Notes         *string  `json:"notes"`
}

// DebriefRequest represents the staff sign-off on a poor-efficiency fill
type DebriefRequest struct {
	Date     string `json:"date"`
	SignedBy string `json:"signed_by" binding:"required"`
	Notes    string `json:"notes"`
}

// ProbeRequest represents a probe reading submission or verification
type ProbeRequest struct {
	Reading *string `json:"reading"`
	Verify  bool    `json:"verify"`
}

// AllocateRequest names the trip whose ledger carries the record's cost
type AllocateRequest struct {
	TripID string `json:"trip_id" binding:"required,uuid"`
}

// SubmitImportRequest represents an import batch submission
type SubmitImportRequest struct {
	Source string             `json:"source"`
	Rows   []shared.ImportRow `json:"rows" binding:"required"`
}

// TriggerImportRequest names the source system to pull an export from
type TriggerImportRequest struct {
	Source string `json:"source"`
}

// RecordListParams represents list filters for fuel records
type RecordListParams struct {
	FleetNumber string `form:"fleet_number"`
	Page        int    `form:"page,default=1" binding:"min=1"`
	PerPage     int    `form:"per_page,default=20" binding:"min=1,max=100"`
}

// AuditListParams represents list filters for the audit trail
type AuditListParams struct {
	Entity   string `form:"entity"`
	EntityID string `form:"entity_id"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PerPage  int    `form:"per_page,default=20" binding:"min=1,max=100"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
