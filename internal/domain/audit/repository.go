package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages the append-only audit trail. There are deliberately no
// update or delete operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByEntity(ctx context.Context, entity, entityID string, limit, offset int) ([]*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context) (int64, error)
	ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates a missing audit entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "audit entry not found: " + e.EntryID.String()
}

// Is treats a target with the nil UUID as matching any ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || t.EntryID == e.EntryID
}

// ErrDuplicateEntry indicates audit id uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate audit entry: " + e.EntryID.String()
}
