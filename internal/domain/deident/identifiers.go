// Package deident removes a patient's known identifying values from clinical
// narrative text before it is handed to a language model, and restores them in
// the model's output afterwards. The mapping between placeholder tokens and
// original values lives only for the duration of one call and is never
// persisted.
package deident

import (
	"strings"
	"time"
)

// IdentifierCategory classifies a patient identifier field. The set is closed:
// adding a category is a compile-time change, not a config entry.
type IdentifierCategory string

const (
	CategoryName        IdentifierCategory = "name"
	CategoryDateOfBirth IdentifierCategory = "date-of-birth"
	CategoryPayerID     IdentifierCategory = "payer-id"
	CategoryPhone       IdentifierCategory = "phone"
	CategoryEmail       IdentifierCategory = "email"
	CategoryAddress     IdentifierCategory = "address"
)

// tokenWord returns the stable upper-case word used inside placeholder tokens
// for this category. Bracketed upper-case tokens survive model echoing without
// being rewritten or case-normalized.
func (c IdentifierCategory) tokenWord() string {
	switch c {
	case CategoryName:
		return "NAME"
	case CategoryDateOfBirth:
		return "DOB"
	case CategoryPayerID:
		return "PAYER"
	case CategoryPhone:
		return "PHONE"
	case CategoryEmail:
		return "EMAIL"
	case CategoryAddress:
		return "ADDRESS"
	}
	return "ID"
}

// PatientIdentifiers holds the known identifying values for a single patient.
// Every field is optional; an empty field is skipped and never an error. The
// struct is borrowed read-only for the duration of one redaction call.
type PatientIdentifiers struct {
	FirstName     string
	LastName      string
	DateOfBirth   string // ISO date string ("2006-01-02") when populated
	PayerID       string
	Phone         string
	Email         string
	PostalAddress string
}

// Empty reports whether no field carries a usable value.
func (p PatientIdentifiers) Empty() bool {
	for _, v := range []string{p.FirstName, p.LastName, p.DateOfBirth, p.PayerID, p.Phone, p.Email, p.PostalAddress} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// minSurfaceLen drops surface forms shorter than this to avoid mass-redaction
// of common substrings (single letters, lone digits).
const minSurfaceLen = 2

// surfaceForm is one textual rendering of an identifier value, tagged with the
// category and canonical value it originated from.
type surfaceForm struct {
	category  IdentifierCategory
	canonical string
	form      string
}

// normalize expands the populated identifier fields into the surface forms
// they may appear in. Output is deterministic for identical input: fields are
// visited in a fixed order and variant generation involves no randomness and
// no I/O. Case variants are not generated; matching is case-insensitive.
func normalize(ids PatientIdentifiers) []surfaceForm {
	var forms []surfaceForm

	add := func(cat IdentifierCategory, canonical string, variants ...string) {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			return
		}
		seen := make(map[string]bool)
		for _, v := range append([]string{canonical}, variants...) {
			v = strings.TrimSpace(v)
			if len(v) < minSurfaceLen {
				continue
			}
			key := strings.ToLower(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			forms = append(forms, surfaceForm{category: cat, canonical: canonical, form: v})
		}
	}

	add(CategoryName, ids.FirstName)
	add(CategoryName, ids.LastName)
	add(CategoryDateOfBirth, ids.DateOfBirth, dateVariants(ids.DateOfBirth)...)
	add(CategoryPayerID, ids.PayerID)
	add(CategoryPhone, ids.Phone, phoneVariants(ids.Phone)...)
	add(CategoryEmail, ids.Email)
	add(CategoryAddress, ids.PostalAddress)

	return forms
}

// dateVariants renders a date of birth in the formats clinical notes commonly
// use: numeric (slash and ISO) and long form (full and abbreviated month
// names). An unparseable value yields no variants; the raw string is still
// searched for as-is.
func dateVariants(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var t time.Time
	var err error
	for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006", "January 2, 2006"} {
		t, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}

	return []string{
		t.Format("2006-01-02"),
		t.Format("01/02/2006"),
		t.Format("1/2/2006"),
		t.Format("January 2, 2006"),
		t.Format("Jan 2, 2006"),
		t.Format("02 January 2006"),
	}
}

// phoneVariants renders a phone number digit-only and in the common punctuated
// groupings for 7, 10, and 11 digit numbers.
func phoneVariants(raw string) []string {
	digits := digitsOnly(raw)
	if len(digits) < minSurfaceLen {
		return nil
	}

	variants := []string{digits}
	switch len(digits) {
	case 7:
		variants = append(variants, digits[:3]+"-"+digits[3:])
	case 10:
		variants = append(variants,
			digits[:3]+"-"+digits[3:6]+"-"+digits[6:],
			"("+digits[:3]+") "+digits[3:6]+"-"+digits[6:],
			digits[:3]+"."+digits[3:6]+"."+digits[6:],
		)
	case 11:
		if digits[0] == '1' {
			rest := digits[1:]
			variants = append(variants,
				"1-"+rest[:3]+"-"+rest[3:6]+"-"+rest[6:],
				"+1-"+rest[:3]+"-"+rest[3:6]+"-"+rest[6:],
				"+1 ("+rest[:3]+") "+rest[3:6]+"-"+rest[6:],
				rest[:3]+"-"+rest[3:6]+"-"+rest[6:],
			)
		}
	}
	return variants
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
