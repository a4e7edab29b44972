package models

// Faculty is an academic faculty.
type Faculty struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Program is a study program owned by a faculty.
type Program struct {
	ID        string `db:"id" json:"id"`
	FacultyID string `db:"faculty_id" json:"faculty_id"`
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
}

// StudentStatus is a configurable student standing such as studying or graduated.
type StudentStatus struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// SchoolConfig is the reference data passed explicitly to services that validate affiliations.
type SchoolConfig struct {
	Faculties []Faculty       `json:"faculties"`
	Programs  []Program       `json:"programs"`
	Statuses  []StudentStatus `json:"statuses"`
}

// HasFaculty reports whether id is a known faculty.
func (c SchoolConfig) HasFaculty(id string) bool {
	for _, f := range c.Faculties {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ProgramInFaculty reports whether the program exists and belongs to the faculty.
func (c SchoolConfig) ProgramInFaculty(programID, facultyID string) bool {
	for _, p := range c.Programs {
		if p.ID == programID {
			return p.FacultyID == facultyID
		}
	}
	return false
}

// HasStatus reports whether id is a known student status.
func (c SchoolConfig) HasStatus(id string) bool {
	for _, s := range c.Statuses {
		if s.ID == id {
			return true
		}
	}
	return false
}
