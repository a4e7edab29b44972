package models

import (
	"fmt"
	"regexp"
	"time"
)

// IdentityPaperType tags the identity paper variant.
type IdentityPaperType string

const (
	IdentityNationalIDOld  IdentityPaperType = "NATIONAL_ID_OLD"
	IdentityNationalIDChip IdentityPaperType = "NATIONAL_ID_CHIP"
	IdentityPassport       IdentityPaperType = "PASSPORT"
)

var (
	oldNationalIDPattern  = regexp.MustCompile(`^\d{9}$`)
	chipNationalIDPattern = regexp.MustCompile(`^\d{12}$`)
	passportPattern       = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)
)

// IdentityPaper is the single identity document owned by a student.
// Variant specific columns are nil for the other variants.
type IdentityPaper struct {
	ID             string            `db:"id" json:"id"`
	StudentID      string            `db:"student_id" json:"student_id"`
	Type           IdentityPaperType `db:"type" json:"type"`
	Number         string            `db:"number" json:"number"`
	IssuedDate     time.Time         `db:"issued_date" json:"issued_date"`
	IssuedPlace    *string           `db:"issued_place" json:"issued_place,omitempty"`
	ExpiryDate     *time.Time        `db:"expiry_date" json:"expiry_date,omitempty"`
	HasChip        *bool             `db:"has_chip" json:"has_chip,omitempty"`
	IssuingCountry *string           `db:"issuing_country" json:"issuing_country,omitempty"`
	Notes          *string           `db:"notes" json:"notes,omitempty"`
}

// Validate enforces the per-variant rules.
func (p IdentityPaper) Validate() error {
	switch p.Type {
	case IdentityNationalIDOld:
		if !oldNationalIDPattern.MatchString(p.Number) {
			return fmt.Errorf("old national id number must be 9 digits")
		}
		if isBlank(p.IssuedPlace) {
			return fmt.Errorf("old national id requires issued place")
		}
		if p.HasChip != nil || p.IssuingCountry != nil || p.ExpiryDate != nil {
			return fmt.Errorf("old national id does not carry chip, expiry or country fields")
		}
	case IdentityNationalIDChip:
		if !chipNationalIDPattern.MatchString(p.Number) {
			return fmt.Errorf("chip national id number must be 12 digits")
		}
		if isBlank(p.IssuedPlace) {
			return fmt.Errorf("chip national id requires issued place")
		}
		if p.ExpiryDate == nil {
			return fmt.Errorf("chip national id requires expiry date")
		}
		if p.IssuingCountry != nil {
			return fmt.Errorf("national id does not carry issuing country")
		}
	case IdentityPassport:
		if !passportPattern.MatchString(p.Number) {
			return fmt.Errorf("passport number must be 6-12 upper-case letters or digits")
		}
		if p.ExpiryDate == nil {
			return fmt.Errorf("passport requires expiry date")
		}
		if isBlank(p.IssuingCountry) {
			return fmt.Errorf("passport requires issuing country")
		}
		if p.HasChip != nil {
			return fmt.Errorf("passport does not carry chip flag")
		}
	default:
		return fmt.Errorf("unknown identity paper type %q", p.Type)
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.After(p.IssuedDate) {
		return fmt.Errorf("expiry date must be after issued date")
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
