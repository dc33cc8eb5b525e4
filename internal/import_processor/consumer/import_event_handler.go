package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
	"github.com/fleet-diesel-ledger/internal/platform/messaging/producers"
)

// ImportEventHandler handles incoming import batch messages from Kafka
type ImportEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewImportEventHandler creates a new handler
func NewImportEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *ImportEventHandler {
	return &ImportEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ImportEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var batch shared.ImportBatch
	if err := json.Unmarshal(value, &batch); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal import batch from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if batch.CorrelationID != "" {
		logger = h.logger.With("correlation_id", batch.CorrelationID)
	}

	logger.Info("Received import batch for processing",
		"batch_id", batch.BatchID.String(),
		"source", batch.Source,
		"rows", len(batch.Rows),
	)

	if err := h.processingService.ProcessBatch(ctx, &batch); err != nil {
		logger.Error("Failed to process import batch",
			"batch_id", batch.BatchID.String(),
			"source", batch.Source,
			"error", err,
		)
		return fmt.Errorf("processing import batch %s failed: %w", batch.BatchID.String(), err)
	}

	logger.Info("Successfully processed import batch", "batch_id", batch.BatchID.String())
	return nil // Success, commit offset
}
