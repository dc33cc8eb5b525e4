package shared

import (
	"time"

	"github.com/google/uuid"
)

// ImportRow is one fuel-card line as produced by the CSV ingestion layer.
// All values arrive as strings; the processor parses and validates them.
// Missing numeric fields parse as 0.0.
type ImportRow struct {
	TransactionDate string `json:"transaction_date"`
	CardNumber      string `json:"card_number"`
	FleetNumber     string `json:"fleet_number"`
	DriverName      string `json:"driver_name"`
	FuelStation     string `json:"fuel_station"`
	Litres          string `json:"litres"`
	UnitPrice       string `json:"unit_price"`
	TotalAmount     string `json:"total_amount"`
	Currency        string `json:"currency"`
	Odometer        string `json:"odometer,omitempty"`
}

// ImportBatch defines a Kafka message carrying one import batch from the
// gateway to the import processor
type ImportBatch struct {
	BatchID       uuid.UUID   `json:"batch_id"`
	Source        string      `json:"source"`
	Actor         string      `json:"actor"`
	Rows          []ImportRow `json:"rows"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ImportSummary reports the outcome of one processed batch. Validation and
// duplicate conditions are recovered locally and never propagate past the
// import boundary.
type ImportSummary struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Total      int       `json:"total"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Reconciled int       `json:"reconciled"`
	Pending    int       `json:"pending"`
	Unmatched  int       `json:"unmatched"`
	Errors     []string  `json:"errors,omitempty"`
}

// TriggerEvent is the payload sent to the external import trigger endpoint
type TriggerEvent struct {
	EventType string      `json:"eventType"`
	Timestamp time.Time   `json:"timestamp"`
	Data      TriggerData `json:"data"`
}

// TriggerData identifies the source system of an import trigger
type TriggerData struct {
	Source string `json:"source"`
}
