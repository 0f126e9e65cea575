// Package identity resolves the identifying values on file for a patient.
// The de-identification engine only ever redacts values this package knows
// about; it performs no discovery of unknown identifiers.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrubnote/scrubnote/internal/domain/deident"
)

// Patient maps to the patient table.
type Patient struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	MRN          string     `db:"mrn" json:"mrn"`
	Active       bool       `db:"active" json:"active"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	PayerID      *string    `db:"payer_id" json:"payer_id,omitempty"`
	PhoneMobile  *string    `db:"phone_mobile" json:"phone_mobile,omitempty"`
	PhoneHome    *string    `db:"phone_home" json:"phone_home,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	AddressLine1 *string    `db:"address_line1" json:"address_line1,omitempty"`
	City         *string    `db:"city" json:"city,omitempty"`
	State        *string    `db:"state" json:"state,omitempty"`
	PostalCode   *string    `db:"postal_code" json:"postal_code,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Identifiers assembles the de-identification input from the record on file.
// Mobile phone wins over home phone when both exist; the address is the street
// line, since city and state alone are not identifying and redacting them
// would mangle unrelated narrative.
func (p *Patient) Identifiers() deident.PatientIdentifiers {
	ids := deident.PatientIdentifiers{
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if p.BirthDate != nil {
		ids.DateOfBirth = p.BirthDate.Format("2006-01-02")
	}
	if p.PayerID != nil {
		ids.PayerID = *p.PayerID
	}
	switch {
	case p.PhoneMobile != nil && strings.TrimSpace(*p.PhoneMobile) != "":
		ids.Phone = *p.PhoneMobile
	case p.PhoneHome != nil:
		ids.Phone = *p.PhoneHome
	}
	if p.Email != nil {
		ids.Email = *p.Email
	}
	if p.AddressLine1 != nil {
		ids.PostalAddress = *p.AddressLine1
	}
	return ids
}
