package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockPatientRepo struct {
	store map[uuid.UUID]*Patient
	err   error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPatientRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.store {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func strPtr(s string) *string { return &s }

func TestResolveIdentifiers(t *testing.T) {
	repo := newMockPatientRepo()
	dob := time.Date(1985, 3, 22, 0, 0, 0, 0, time.UTC)
	p := &Patient{
		ID:           uuid.New(),
		MRN:          "MRN-1001",
		FirstName:    "Jane",
		LastName:     "Doe",
		BirthDate:    &dob,
		PayerID:      strPtr("ZA123456789"),
		PhoneMobile:  strPtr("555-867-5309"),
		PhoneHome:    strPtr("555-0100"),
		Email:        strPtr("jane.doe@example.com"),
		AddressLine1: strPtr("123 Main Street"),
	}
	repo.store[p.ID] = p
	svc := NewService(repo)

	ids, err := svc.ResolveIdentifiers(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids.FirstName != "Jane" || ids.LastName != "Doe" {
		t.Errorf("name not resolved: %+v", ids)
	}
	if ids.DateOfBirth != "1985-03-22" {
		t.Errorf("expected ISO birth date, got %q", ids.DateOfBirth)
	}
	if ids.Phone != "555-867-5309" {
		t.Errorf("mobile phone should win, got %q", ids.Phone)
	}
	if ids.PostalAddress != "123 Main Street" {
		t.Errorf("unexpected address %q", ids.PostalAddress)
	}
}

func TestResolveIdentifiers_SparseFields(t *testing.T) {
	repo := newMockPatientRepo()
	p := &Patient{ID: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	repo.store[p.ID] = p
	svc := NewService(repo)

	ids, err := svc.ResolveIdentifiers(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("sparse fields are not an error: %v", err)
	}
	if ids.Phone != "" || ids.Email != "" || ids.DateOfBirth != "" {
		t.Errorf("absent fields should stay empty: %+v", ids)
	}
}

func TestResolveIdentifiers_HomePhoneFallback(t *testing.T) {
	repo := newMockPatientRepo()
	p := &Patient{ID: uuid.New(), FirstName: "Jane", LastName: "Doe", PhoneHome: strPtr("555-0100")}
	repo.store[p.ID] = p
	svc := NewService(repo)

	ids, _ := svc.ResolveIdentifiers(context.Background(), p.ID)
	if ids.Phone != "555-0100" {
		t.Errorf("expected home phone fallback, got %q", ids.Phone)
	}
}

func TestResolveIdentifiers_NotFound(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	_, err := svc.ResolveIdentifiers(context.Background(), uuid.New())
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestResolveIdentifiers_StoreFailure(t *testing.T) {
	repo := newMockPatientRepo()
	repo.err = errors.New("connection refused")
	svc := NewService(repo)

	_, err := svc.ResolveIdentifiers(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("store failure must not report as a missing patient: %v", err)
	}
	if !errors.Is(err, repo.err) {
		t.Errorf("cause not wrapped: %v", err)
	}
}
