package models

import "time"

// EmploymentStatus of a teacher; only ACTIVE teachers are ever allocated.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "ACTIVE"
	EmploymentOnLeave    EmploymentStatus = "ON_LEAVE"
	EmploymentTerminated EmploymentStatus = "TERMINATED"
)

// AvailabilityStatus marks a teacher's stance for a year/internship type.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "AVAILABLE"
	AvailabilityUnavailable AvailabilityStatus = "UNAVAILABLE"
	AvailabilityTentative   AvailabilityStatus = "TENTATIVE"
)

// Teacher represents an instructor employed at a school.
type Teacher struct {
	ID               string           `db:"id" json:"id"`
	FullName         string           `db:"full_name" json:"full_name"`
	SchoolID         string           `db:"school_id" json:"school_id"`
	EmploymentStatus EmploymentStatus `db:"employment_status" json:"employment_status"`
	PartTime         bool             `db:"part_time" json:"part_time"`
	UsageCycle       *string          `db:"usage_cycle" json:"usage_cycle,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// TeacherDetail joins the owning school onto the teacher row.
type TeacherDetail struct {
	Teacher
	SchoolName string     `db:"school_name" json:"school_name"`
	SchoolType SchoolType `db:"school_type" json:"school_type"`
	ZoneNumber int        `db:"zone_number" json:"zone_number"`
}

// TeacherQualification records a subject the teacher may supervise.
type TeacherQualification struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	MainSubject bool      `db:"main_subject" json:"main_subject"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TeacherAvailability is the per-year, per-internship-type self declaration.
type TeacherAvailability struct {
	ID               string             `db:"id" json:"id"`
	TeacherID        string             `db:"teacher_id" json:"teacher_id"`
	AcademicYearID   string             `db:"academic_year_id" json:"academic_year_id"`
	InternshipTypeID string             `db:"internship_type_id" json:"internship_type_id"`
	Status           AvailabilityStatus `db:"status" json:"status"`
	IsAvailable      bool               `db:"is_available" json:"is_available"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// TeacherSubject is a year-scoped subject availability declaration. It is the
// second qualification channel: a teacher without a standing qualification can
// still open a subject for one year.
type TeacherSubject struct {
	ID             string    `db:"id" json:"id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search   string
	SchoolID string
	Status   EmploymentStatus
	Page     int
	PageSize int
}

// PoolTeacher is the flattened per-teacher row of a year pool.
type PoolTeacher struct {
	ID               string           `db:"id"`
	EmploymentStatus EmploymentStatus `db:"employment_status"`
	SchoolType       SchoolType       `db:"school_type"`
	ZoneNumber       int              `db:"zone_number"`
	PartTime         bool             `db:"part_time"`
}

// PoolAvailability is the flattened availability declaration of a pool entry.
type PoolAvailability struct {
	Status      AvailabilityStatus
	IsAvailable bool
}

// TeacherPool is a pre-joined snapshot of the teacher population for one
// academic year. Eligibility checks run against these lookup maps instead of
// traversing live records.
type TeacherPool struct {
	Teachers map[string]PoolTeacher
	// Qualifications maps teacher ID to the set of qualified subject IDs.
	Qualifications map[string]map[string]struct{}
	// SubjectStatus maps teacher ID to subject ID to the year-scoped
	// TeacherSubject status string.
	SubjectStatus map[string]map[string]string
	// Availability maps teacher ID to internship type ID.
	Availability map[string]map[string]PoolAvailability
}
