package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/import_processor/service"
	"github.com/fleet-diesel-ledger/internal/reconciliation/matching"
)

const candidateDateLayout = "2006-01-02"

type BatchReconcilerImpl struct {
	engine        *matching.Engine
	dieselRepo    diesel.Repository
	fuelCardRepo  fuelcard.Repository
	auditRecorder service.AuditRecorder
	logger        *slog.Logger
}

func NewBatchReconciler(
	engine *matching.Engine,
	dieselRepo diesel.Repository,
	fuelCardRepo fuelcard.Repository,
	auditRecorder service.AuditRecorder,
	logger *slog.Logger,
) service.BatchReconciler {
	return &BatchReconcilerImpl{
		engine:        engine,
		dieselRepo:    dieselRepo,
		fuelCardRepo:  fuelCardRepo,
		auditRecorder: auditRecorder,
		logger:        logger,
	}
}

// SnapshotCandidates loads the diesel records for every calendar day the
// batch touches. The snapshot is taken before the batch persists anything, so
// a batch never matches against records it created itself.
func (r *BatchReconcilerImpl) SnapshotCandidates(ctx context.Context, rows []*service.ImportedRow) (map[string][]*diesel.Record, error) {
	candidates := make(map[string][]*diesel.Record)
	for _, row := range rows {
		key := row.Date.Format(candidateDateLayout)
		if _, ok := candidates[key]; ok {
			continue
		}
		records, err := r.dieselRepo.ListByDate(ctx, row.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to list candidate records for %s: %w", key, err)
		}
		candidates[key] = records
	}
	return candidates, nil
}

// Reconcile classifies the batch's transactions day by day and persists every
// status change inside the supplied database transaction, together with its
// audit entry.
func (r *BatchReconcilerImpl) Reconcile(ctx context.Context, tx pgx.Tx, batch *shared.ImportBatch, txns []*fuelcard.Transaction, candidates map[string][]*diesel.Record) (service.ReconcileCounts, error) {
	byDay := make(map[string][]*fuelcard.Transaction)
	for _, txn := range txns {
		key := txn.Date.Format(candidateDateLayout)
		byDay[key] = append(byDay[key], txn)
	}

	fuelCardRepoTx := r.fuelCardRepo.WithTx(tx)

	var counts service.ReconcileCounts
	for key, group := range byDay {
		classified := r.engine.Reconcile(group, candidates[key])
		for _, txn := range classified {
			if err := fuelCardRepoTx.Update(ctx, txn); err != nil {
				return service.ReconcileCounts{}, fmt.Errorf("failed to persist classification for transaction %s: %w", txn.ID.String(), err)
			}
			if err := r.queueClassification(ctx, tx, batch, txn); err != nil {
				return service.ReconcileCounts{}, err
			}

			switch txn.Status {
			case shared.ReconcileStatusReconciled:
				counts.Reconciled++
			case shared.ReconcileStatusPending:
				counts.Pending++
			default:
				counts.Unmatched++
			}
		}
	}

	r.logger.Info("Batch reconciliation complete",
		"batch_id", batch.BatchID.String(),
		"reconciled", counts.Reconciled,
		"pending", counts.Pending,
		"unmatched", counts.Unmatched,
	)
	return counts, nil
}

func (r *BatchReconcilerImpl) queueClassification(ctx context.Context, tx pgx.Tx, batch *shared.ImportBatch, txn *fuelcard.Transaction) error {
	details := fmt.Sprintf("Matching classified transaction as %s", txn.Status)
	if txn.MatchedRecordID != nil {
		details = fmt.Sprintf("Matching reconciled transaction against record %s", txn.MatchedRecordID.String())
	}

	entry, err := audit.NewEntry(batch.Actor, shared.AuditActionUpdate, "fuel_transaction", txn.ID.String(), details, nil, txn)
	if err != nil {
		return fmt.Errorf("failed to build audit entry for transaction %s: %w", txn.ID.String(), err)
	}
	return r.auditRecorder.QueueEntry(ctx, tx, entry)
}
