package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fleet-diesel-ledger/internal/domain/norm"
	"github.com/fleet-diesel-ledger/internal/platform/persistence"
)

// NormRepository implements the norm.Repository interface for PostgreSQL
type NormRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewNormRepository creates a new PostgreSQL fleet norm repository
func NewNormRepository(logger *slog.Logger, db *persistence.PostgresDB) norm.Repository {
	return &NormRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *NormRepository) WithTx(tx pgx.Tx) norm.Repository {
	return &NormRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByFleetNumber retrieves the consumption norm for a fleet unit.
// Returns nil, nil when the fleet has no configured norm.
func (r *NormRepository) GetByFleetNumber(ctx context.Context, fleetNumber string) (*norm.Norm, error) {
	query := `
		SELECT fleet_number, expected_km_per_litre, litres_per_hour, tolerance_percentage, created_at, updated_at
		FROM norms
		WHERE fleet_number = $1
	`

	var n norm.Norm
	err := r.querier.QueryRow(ctx, query, fleetNumber).Scan(
		&n.FleetNumber,
		&n.ExpectedKmPerLitre,
		&n.LitresPerHour,
		&n.TolerancePercentage,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Callers fall back to package defaults
		}
		r.logger.Error("Failed to get fleet norm", "fleetNumber", fleetNumber, "error", err)
		return nil, fmt.Errorf("failed to get fleet norm: %w", err)
	}

	return &n, nil
}

// Upsert inserts or replaces the consumption norm for a fleet unit
func (r *NormRepository) Upsert(ctx context.Context, n *norm.Norm) error {
	query := `
		INSERT INTO norms (fleet_number, expected_km_per_litre, litres_per_hour, tolerance_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fleet_number) DO UPDATE
		SET expected_km_per_litre = EXCLUDED.expected_km_per_litre,
		    litres_per_hour = EXCLUDED.litres_per_hour,
		    tolerance_percentage = EXCLUDED.tolerance_percentage,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		n.FleetNumber,
		n.ExpectedKmPerLitre,
		n.LitresPerHour,
		n.TolerancePercentage,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert fleet norm", "fleetNumber", n.FleetNumber, "error", err)
		return fmt.Errorf("failed to upsert fleet norm: %w", err)
	}

	return nil
}

// List retrieves every configured fleet norm
func (r *NormRepository) List(ctx context.Context) ([]*norm.Norm, error) {
	query := `
		SELECT fleet_number, expected_km_per_litre, litres_per_hour, tolerance_percentage, created_at, updated_at
		FROM norms
		ORDER BY fleet_number
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list fleet norms", "error", err)
		return nil, fmt.Errorf("failed to list fleet norms: %w", err)
	}
	defer rows.Close()

	var norms []*norm.Norm
	for rows.Next() {
		var n norm.Norm
		if err := rows.Scan(
			&n.FleetNumber,
			&n.ExpectedKmPerLitre,
			&n.LitresPerHour,
			&n.TolerancePercentage,
			&n.CreatedAt,
			&n.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan fleet norm", "error", err)
			return nil, fmt.Errorf("failed to scan fleet norm: %w", err)
		}
		norms = append(norms, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fleet norms: %w", err)
	}

	return norms, nil
}
