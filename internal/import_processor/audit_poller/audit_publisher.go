package audit_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/outbox"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// AuditPublisher publishes outbox messages to the audit trail
type AuditPublisher interface {
	PublishToAuditTrail(ctx context.Context, message *outbox.Message) error
}

// AuditPublisherImpl implements AuditPublisher
type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

// NewAuditPublisher creates a new publisher
func NewAuditPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// PublishToAuditTrail writes the queued audit entry to MongoDB and marks the
// outbox message processed. Re-publication of an already written entry is a
// success, so crashed pollers can safely replay.
func (p *AuditPublisherImpl) PublishToAuditTrail(ctx context.Context, message *outbox.Message) error {
	var entry audit.Entry
	if err := json.Unmarshal(message.Payload, &entry); err != nil {
		p.logger.Error("Failed to unmarshal audit entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to audit trail", "outbox_id", message.ID, "entry_id", message.EntryID)

	if err := p.auditRepo.Create(ctx, &entry); err != nil {
		if errors.Is(err, audit.ErrDuplicateEntry{EntryID: entry.ID}) {
			logger.Info("Audit entry already published", "entry_id", entry.ID.String())
		} else {
			logger.Error("Failed to create audit entry in MongoDB", "entry_id", entry.ID.String(), "error", err)
			return fmt.Errorf("failed to create audit entry %s: %w", entry.ID.String(), err)
		}
	} else {
		logger.Info("Successfully created audit entry in MongoDB", "entry_id", entry.ID.String())
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		return fmt.Errorf("audit write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.EntryID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "entry_id", message.EntryID)
	return nil
}
