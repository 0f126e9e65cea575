package aiaudit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the append-only audit store. Records are independent inserts;
// concurrent writers never coordinate.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error)
}
