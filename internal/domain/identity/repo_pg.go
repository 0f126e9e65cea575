package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubnote/scrubnote/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type PatientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepoPG(pool *pgxpool.Pool) *PatientRepoPG {
	return &PatientRepoPG{pool: pool}
}

func (r *PatientRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, mrn, active, first_name, last_name, birth_date, payer_id,
	phone_mobile, phone_home, email, address_line1, city, state, postal_code,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.MRN, &p.Active, &p.FirstName, &p.LastName, &p.BirthDate, &p.PayerID,
		&p.PhoneMobile, &p.PhoneHome, &p.Email, &p.AddressLine1, &p.City, &p.State, &p.PostalCode,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return &p, err
}

func (r *PatientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patient WHERE id = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *PatientRepoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patient WHERE mrn = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, mrn))
}
