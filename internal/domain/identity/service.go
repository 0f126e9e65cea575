package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scrubnote/scrubnote/internal/domain/deident"
)

// ErrPatientNotFound reports that the subject could not be resolved. An
// entirely absent subject is rejected here, before any redaction runs;
// scrubbing against an empty identifier set would silently leak everything.
var ErrPatientNotFound = errors.New("identity: patient not found")

type Service struct {
	patients PatientRepository
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		// A store failure is not a missing patient and must not report as one.
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// ResolveIdentifiers returns the identifying values on file for the patient.
// A found patient with sparse fields is fine (missing fields are skipped by
// the redactor); a missing patient is an error.
func (s *Service) ResolveIdentifiers(ctx context.Context, id uuid.UUID) (deident.PatientIdentifiers, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return deident.PatientIdentifiers{}, err
	}
	return p.Identifiers(), nil
}
