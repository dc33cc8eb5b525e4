package components

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
)

// Accepted transaction date layouts, in order of preference. Card statements
// arrive with either ISO or South African day-first dates.
var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

type RowValidatorImpl struct {
	logger *slog.Logger
}

func NewRowValidator(logger *slog.Logger) service.RowValidator {
	return &RowValidatorImpl{logger: logger}
}

// Parse converts one raw import row into its typed form. Malformed rows
// return a ValidationError so the batch can count them and continue; missing
// numeric fields parse as zero.
//
// Fleet number is required even though the matching engine tolerates
// transactions without one: every accepted row also creates a diesel record,
// and records cannot exist without a fleet unit. Fleetless card lines must
// be corrected at the provider before import.
func (v *RowValidatorImpl) Parse(batch *shared.ImportBatch, row shared.ImportRow) (*service.ImportedRow, error) {
	date, err := parseDate(row.TransactionDate)
	if err != nil {
		return nil, shared.ValidationError{Field: "transaction_date", Reason: "unparseable date: " + row.TransactionDate}
	}

	fleetNumber := strings.TrimSpace(row.FleetNumber)
	if fleetNumber == "" {
		return nil, shared.ValidationError{Field: "fleet_number", Reason: "fleet number is required"}
	}

	litres, err := parseDecimal(row.Litres)
	if err != nil {
		return nil, shared.ValidationError{Field: "litres", Reason: "unparseable litres: " + row.Litres}
	}
	if !litres.IsPositive() {
		return nil, shared.ValidationError{Field: "litres", Reason: "litres must be positive"}
	}

	unitPrice, err := parseDecimal(row.UnitPrice)
	if err != nil {
		return nil, shared.ValidationError{Field: "unit_price", Reason: "unparseable unit price: " + row.UnitPrice}
	}

	totalAmount, err := parseDecimal(row.TotalAmount)
	if err != nil {
		return nil, shared.ValidationError{Field: "total_amount", Reason: "unparseable total amount: " + row.TotalAmount}
	}
	if totalAmount.IsZero() && unitPrice.IsPositive() {
		totalAmount = litres.Mul(unitPrice).Round(2)
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = shared.CurrencyZAR
	}
	if currency != shared.CurrencyZAR && currency != shared.CurrencyUSD {
		return nil, shared.ValidationError{Field: "currency", Reason: "unsupported currency: " + row.Currency}
	}

	odometer := 0.0
	if strings.TrimSpace(row.Odometer) != "" {
		odometer, err = strconv.ParseFloat(strings.TrimSpace(row.Odometer), 64)
		if err != nil {
			return nil, shared.ValidationError{Field: "odometer", Reason: "unparseable odometer: " + row.Odometer}
		}
	}

	return &service.ImportedRow{
		Date:        date,
		CardNumber:  strings.TrimSpace(row.CardNumber),
		FleetNumber: fleetNumber,
		DriverName:  strings.TrimSpace(row.DriverName),
		FuelStation: strings.TrimSpace(row.FuelStation),
		Litres:      litres,
		UnitPrice:   unitPrice,
		TotalAmount: totalAmount,
		Currency:    currency,
		Odometer:    odometer,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
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

// parseDecimal treats an empty field as zero per the import contract
func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
