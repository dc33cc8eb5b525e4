package norm

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines per-fleet norm persistence operations
type Repository interface {
	// GetByFleetNumber returns nil, nil when the fleet has no configured
	// norm; callers fall back to the package defaults
	GetByFleetNumber(ctx context.Context, fleetNumber string) (*Norm, error)
	Upsert(ctx context.Context, n *Norm) error
	List(ctx context.Context) ([]*Norm, error)
	WithTx(tx pgx.Tx) Repository
}
