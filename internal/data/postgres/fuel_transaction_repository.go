package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fleet-diesel-ledger/internal/domain/diesel"
	"github.com/fleet-diesel-ledger/internal/domain/fuelcard"
	"github.com/fleet-diesel-ledger/internal/domain/shared"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
)

const fuelTransactionColumns = `
	id, batch_id, card_number, fleet_number, driver_name, fuel_station,
	txn_date, litres, unit_price, total_amount, currency, odometer,
	status, matched_record_id, created_at, updated_at
`

// FuelTransactionRepository implements the fuelcard.Repository interface for PostgreSQL
type FuelTransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFuelTransactionRepository creates a new PostgreSQL fuel-card transaction repository
func NewFuelTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) fuelcard.Repository {
	return &FuelTransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *FuelTransactionRepository) WithTx(tx pgx.Tx) fuelcard.Repository {
	return &FuelTransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new fuel-card transaction
func (r *FuelTransactionRepository) Create(ctx context.Context, txn *fuelcard.Transaction) error {
	query := `
		INSERT INTO fuel_transactions (` + fuelTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.BatchID,
		txn.CardNumber,
		txn.FleetNumber,
		txn.DriverName,
		txn.FuelStation,
		txn.Date,
		txn.Litres,
		txn.UnitPrice,
		txn.TotalAmount,
		txn.Currency,
		txn.Odometer,
		txn.Status,
		txn.MatchedRecordID,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create fuel transaction", "error", err)
		return fmt.Errorf("failed to create fuel transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a fuel-card transaction by its ID
func (r *FuelTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*fuelcard.Transaction, error) {
	query := `
		SELECT ` + fuelTransactionColumns + `
		FROM fuel_transactions
		WHERE id = $1
	`

	txn, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fuelcard.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get fuel transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get fuel transaction: %w", err)
	}

	return txn, nil
}

// ListByBatch retrieves every transaction imported under a batch
func (r *FuelTransactionRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*fuelcard.Transaction, error) {
	query := `
		SELECT ` + fuelTransactionColumns + `
		FROM fuel_transactions
		WHERE batch_id = $1
		ORDER BY txn_date, created_at
	`

	rows, err := r.querier.Query(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to list fuel transactions by batch", "batchID", batchID.String(), "error", err)
		return nil, fmt.Errorf("failed to list fuel transactions by batch: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// ListByStatus retrieves transactions in a reconciliation state with pagination
func (r *FuelTransactionRepository) ListByStatus(ctx context.Context, status shared.ReconcileStatus, limit, offset int) ([]*fuelcard.Transaction, error) {
	query := `
		SELECT ` + fuelTransactionColumns + `
		FROM fuel_transactions
		WHERE status = $1
		ORDER BY txn_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list fuel transactions by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to list fuel transactions by status: %w", err)
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// CountByStatus counts transactions in a reconciliation state
func (r *FuelTransactionRepository) CountByStatus(ctx context.Context, status shared.ReconcileStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM fuel_transactions WHERE status = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count fuel transactions", "status", status, "error", err)
		return 0, fmt.Errorf("failed to count fuel transactions: %w", err)
	}

	return count, nil
}

// FindDuplicate locates a previously imported transaction on the same card
// and fleet unit and calendar day with litres within diesel.DuplicateWindow.
// Returns nil, nil when none exists.
func (r *FuelTransactionRepository) FindDuplicate(ctx context.Context, cardNumber, fleetNumber string, date time.Time, litres decimal.Decimal) (*fuelcard.Transaction, error) {
	query := `
		SELECT ` + fuelTransactionColumns + `
		FROM fuel_transactions
		WHERE card_number = $1
		  AND fleet_number = $2
		  AND txn_date >= $3 AND txn_date < $4
		  AND ABS(litres - $5) <= $6
		LIMIT 1
	`

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	txn, err := r.scanTransaction(r.querier.QueryRow(ctx, query,
		cardNumber, fleetNumber, dayStart, dayStart.AddDate(0, 0, 1), litres, diesel.DuplicateWindow))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to check for duplicate fuel transaction", "cardNumber", cardNumber, "error", err)
		return nil, fmt.Errorf("failed to check for duplicate fuel transaction: %w", err)
	}

	return txn, nil
}

// Update writes a modified transaction back
func (r *FuelTransactionRepository) Update(ctx context.Context, txn *fuelcard.Transaction) error {
	query := `
		UPDATE fuel_transactions
		SET status = $1, matched_record_id = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		txn.Status,
		txn.MatchedRecordID,
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update fuel transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update fuel transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fuelcard.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

func (r *FuelTransactionRepository) scanTransaction(row pgx.Row) (*fuelcard.Transaction, error) {
	var txn fuelcard.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.BatchID,
		&txn.CardNumber,
		&txn.FleetNumber,
		&txn.DriverName,
		&txn.FuelStation,
		&txn.Date,
		&txn.Litres,
		&txn.UnitPrice,
		&txn.TotalAmount,
		&txn.Currency,
		&txn.Odometer,
		&txn.Status,
		&txn.MatchedRecordID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *FuelTransactionRepository) collectTransactions(rows pgx.Rows) ([]*fuelcard.Transaction, error) {
	var txns []*fuelcard.Transaction
	for rows.Next() {
		txn, err := r.scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan fuel transaction", "error", err)
			return nil, fmt.Errorf("failed to scan fuel transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fuel transactions: %w", err)
	}
	return txns, nil
}
