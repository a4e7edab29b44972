package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnrollmentStatus(t *testing.T) {
	cases := map[string]EnrollmentStatus{
		"active":    EnrollmentStatusActive,
		"COMPLETED": EnrollmentStatusCompleted,
		"drop":      EnrollmentStatusCancelled,
		"COMPLETE":  EnrollmentStatusCompleted,
		" fail ":    EnrollmentStatusFailed,
	}
	for raw, want := range cases {
		got, err := ParseEnrollmentStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseEnrollmentStatus("PENDING")
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }

func TestIdentityPaperValidate(t *testing.T) {
	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := issued.AddDate(10, 0, 0)
	chip := true

	valid := []IdentityPaper{
		{Type: IdentityNationalIDOld, Number: "123456789", IssuedDate: issued, IssuedPlace: strPtr("Ha Noi")},
		{Type: IdentityNationalIDChip, Number: "001234567890", IssuedDate: issued, ExpiryDate: &expiry, IssuedPlace: strPtr("Ha Noi"), HasChip: &chip},
		{Type: IdentityPassport, Number: "B1234567", IssuedDate: issued, ExpiryDate: &expiry, IssuingCountry: strPtr("VN")},
	}
	for _, p := range valid {
		assert.NoError(t, p.Validate(), p.Type)
	}

	invalid := []IdentityPaper{
		{Type: IdentityNationalIDOld, Number: "12345", IssuedDate: issued, IssuedPlace: strPtr("Ha Noi")},
		{Type: IdentityNationalIDOld, Number: "123456789", IssuedDate: issued, IssuedPlace: strPtr("Ha Noi"), HasChip: &chip},
		{Type: IdentityNationalIDChip, Number: "001234567890", IssuedDate: issued, IssuedPlace: strPtr("Ha Noi")},
		{Type: IdentityPassport, Number: "B1234567", IssuedDate: issued, ExpiryDate: &expiry},
		{Type: IdentityPassport, Number: "B1234567", IssuedDate: expiry, ExpiryDate: &issued, IssuingCountry: strPtr("VN")},
		{Type: "DRIVING_LICENSE", Number: "x"},
	}
	for _, p := range invalid {
		assert.Error(t, p.Validate(), p.Type)
	}
}

func TestSchoolConfigLookups(t *testing.T) {
	cfg := SchoolConfig{
		Faculties: []Faculty{{ID: "f1"}},
		Programs:  []Program{{ID: "p1", FacultyID: "f1"}},
		Statuses:  []StudentStatus{{ID: "s1"}},
	}
	assert.True(t, cfg.HasFaculty("f1"))
	assert.False(t, cfg.HasFaculty("f2"))
	assert.True(t, cfg.ProgramInFaculty("p1", "f1"))
	assert.False(t, cfg.ProgramInFaculty("p1", "f2"))
	assert.True(t, cfg.HasStatus("s1"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 500, 42)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 42, p.TotalCount)
}
