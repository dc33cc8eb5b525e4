package service

import (
	"context"
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/reconciliation/anomaly"
)

// AlertServiceImpl implements the AlertService interface. Alerts are derived
// on demand from the current record population and never stored.
type AlertServiceImpl struct {
	dieselRepo  diesel.Repository
	detector    *anomaly.Detector
	probeFleets map[string]struct{}
	logger      *slog.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(logger *slog.Logger, dieselRepo diesel.Repository, detector *anomaly.Detector, probeFleets map[string]struct{}) AlertService {
	return &AlertServiceImpl{
		dieselRepo:  dieselRepo,
		detector:    detector,
		probeFleets: probeFleets,
		logger:      logger,
	}
}

// ListAlerts scans the full record population. An empty category returns
// every alert.
func (s *AlertServiceImpl) ListAlerts(ctx context.Context, category shared.AlertCategory) ([]anomaly.Alert, error) {
	records, err := s.dieselRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	alerts := s.detector.Scan(records, s.probeFleets)
	if category == "" {
		return alerts, nil
	}

	filtered := make([]anomaly.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Category == category {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}
