package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/platform/messaging/producers"
)

// ImportServiceImpl implements the ImportService interface. Batch submission
// is fire-and-forget: the gateway publishes and the import processor reports
// the outcome through the audit trail.
type ImportServiceImpl struct {
	batchPublisher   producers.MessagePublisher
	triggerPublisher producers.TriggerEventPublisher
	logger           *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(logger *slog.Logger, batchPublisher producers.MessagePublisher, triggerPublisher producers.TriggerEventPublisher) ImportService {
	return &ImportServiceImpl{
		batchPublisher:   batchPublisher,
		triggerPublisher: triggerPublisher,
		logger:           logger,
	}
}

// SubmitBatch publishes an import batch for asynchronous processing
func (s *ImportServiceImpl) SubmitBatch(ctx context.Context, actor, source, correlationID string, rows []shared.ImportRow) (*shared.ImportBatch, error) {
	if len(rows) == 0 {
		return nil, shared.ValidationError{Field: "rows", Reason: "batch carries no rows"}
	}
	if source == "" {
		source = "manual"
	}

	batch := &shared.ImportBatch{
		BatchID:       uuid.New(),
		Source:        source,
		Actor:         actor,
		Rows:          rows,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}

	if err := s.batchPublisher.Publish(ctx, batch.BatchID.String(), batch); err != nil {
		s.logger.Error("Failed to publish import batch",
			"batch_id", batch.BatchID.String(),
			"source", source,
			"rows", len(rows),
			"error", err,
		)
		return nil, fmt.Errorf("failed to publish import batch: %w", err)
	}

	s.logger.Info("Import batch published",
		"batch_id", batch.BatchID.String(),
		"source", source,
		"rows", len(rows),
	)
	return batch, nil
}

// Trigger asks the external card provider integration to start an export
func (s *ImportServiceImpl) Trigger(ctx context.Context, source string) error {
	if source == "" {
		source = "fuelcard"
	}

	event := &shared.TriggerEvent{
		EventType: "import.requested",
		Timestamp: time.Now(),
		Data:      shared.TriggerData{Source: source},
	}

	if err := s.triggerPublisher.PublishTrigger(ctx, event); err != nil {
		s.logger.Error("Import trigger failed", "source", source, "error", err)
		return err
	}

	s.logger.Info("Import trigger delivered", "source", source)
	return nil
}
