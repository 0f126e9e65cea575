package identity

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
}
