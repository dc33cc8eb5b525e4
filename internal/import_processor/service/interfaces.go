package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/audit"
	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
)

// ProcessingService defines the interface for processing import batches.
type ProcessingService interface {
	ProcessBatch(ctx context.Context, batch *shared.ImportBatch) error
}

// ImportedRow is a validated, fully parsed import row ready for persistence.
type ImportedRow struct {
	Date        time.Time
	CardNumber  string
	FleetNumber string
	DriverName  string
	FuelStation string
	Litres      decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	Currency    string
	Odometer    float64
}

// ReconcileCounts aggregates the classification outcome of one batch.
type ReconcileCounts struct {
	Reconciled int
	Pending    int
	Unmatched  int
}

// RowValidator parses raw import rows before processing
type RowValidator interface {
	Parse(batch *shared.ImportBatch, row shared.ImportRow) (*ImportedRow, error)
}

// DuplicateChecker detects rows that re-submit an already captured fill
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, row *ImportedRow) (bool, error)
}

// RecordCreator persists the diesel record and fuel-card transaction for one
// imported row
type RecordCreator interface {
	CreateImported(ctx context.Context, tx pgx.Tx, batch *shared.ImportBatch, row *ImportedRow) (*diesel.Record, *fuelcard.Transaction, error)
}

// BatchReconciler runs the matching engine over a batch's transactions and
// persists the resulting classifications
type BatchReconciler interface {
	// SnapshotCandidates loads the match candidates per calendar day before
	// the batch creates any records of its own.
	SnapshotCandidates(ctx context.Context, rows []*ImportedRow) (map[string][]*diesel.Record, error)
	Reconcile(ctx context.Context, tx pgx.Tx, batch *shared.ImportBatch, txns []*fuelcard.Transaction, candidates map[string][]*diesel.Record) (ReconcileCounts, error)
}

// AuditRecorder queues audit trail entries through the transactional outbox
type AuditRecorder interface {
	QueueEntry(ctx context.Context, tx pgx.Tx, entry *audit.Entry) error
	RecordSummary(ctx context.Context, batch *shared.ImportBatch, summary *shared.ImportSummary) error
}
