package models

import "time"

// Gender values accepted for students.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// Student represents a learner registered in the institution.
type Student struct {
	ID          string    `db:"id" json:"id"`
	StudentCode string    `db:"student_code" json:"student_code"`
	FullName    string    `db:"full_name" json:"full_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	ProgramID   string    `db:"program_id" json:"program_id"`
	StatusID    string    `db:"status_id" json:"status_id"`
	CohortYear  int       `db:"cohort_year" json:"cohort_year"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail is a student with the records it owns.
type StudentDetail struct {
	Student
	Addresses     []Address      `json:"addresses"`
	IdentityPaper *IdentityPaper `json:"identity_paper,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	FacultyID string
	ProgramID string
	StatusID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AddressKind distinguishes the addresses a student may have.
type AddressKind string

const (
	AddressMailing   AddressKind = "MAILING"
	AddressPermanent AddressKind = "PERMANENT"
	AddressTemporary AddressKind = "TEMPORARY"
)

// Address is owned by exactly one student; at most one per kind.
type Address struct {
	ID        string      `db:"id" json:"id"`
	StudentID string      `db:"student_id" json:"student_id"`
	Kind      AddressKind `db:"kind" json:"kind"`
	Street    string      `db:"street" json:"street"`
	Ward      string      `db:"ward" json:"ward"`
	District  string      `db:"district" json:"district"`
	City      string      `db:"city" json:"city"`
	Country   string      `db:"country" json:"country"`
}
