package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/outbox"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
)

type AuditRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewAuditRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// QueueEntry stores the audit entry in the outbox inside the caller's
// database transaction, so a committed mutation always has its audit entry
// queued for publication.
func (m *AuditRecorderImpl) QueueEntry(ctx context.Context, tx pgx.Tx, entry *audit.Entry) error {
	message, err := outbox.NewMessage(entry)
	if err != nil {
		m.logger.Error("Failed to create outbox message payload", "entry_id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message payload for entry %s: %w", entry.ID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		m.logger.Error("Failed to queue audit entry",
			"entry_id", entry.ID.String(),
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err,
		)
		return fmt.Errorf("failed to queue audit entry %s: %w", entry.ID.String(), err)
	}

	m.logger.Info("Audit entry queued", "entry_id", entry.ID.String(), "outbox_id", message.ID)
	return nil
}

// RecordSummary queues the import summary for the audit trail. Summaries are
// written after the batch has committed, so this uses the pool-backed
// repository directly.
func (m *AuditRecorderImpl) RecordSummary(ctx context.Context, batch *shared.ImportBatch, summary *shared.ImportSummary) error {
	entry, err := audit.NewEntry(batch.Actor, shared.AuditActionCreate, "import_batch", batch.BatchID.String(),
		fmt.Sprintf("Import batch from %s: %d imported, %d skipped, %d failed", batch.Source, summary.Imported, summary.Skipped, summary.Failed),
		nil, summary)
	if err != nil {
		return fmt.Errorf("failed to build summary audit entry for batch %s: %w", batch.BatchID.String(), err)
	}
	entry.CorrelationID = batch.CorrelationID

	message, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to create outbox message payload for batch %s: %w", batch.BatchID.String(), err)
	}

	if err = m.outboxRepo.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to queue import summary for batch %s: %w", batch.BatchID.String(), err)
	}

	m.logger.Info("Import summary queued for audit trail", "batch_id", batch.BatchID.String(), "outbox_id", message.ID)
	return nil
}
