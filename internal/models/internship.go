package models

import "time"

// InternshipType identifies one internship track (e.g. SFP early practice).
// Semester orders demand processing; SubjectSpecific marks tracks whose
// demands are defined per subject.
type InternshipType struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	FullName        string    `db:"full_name" json:"full_name"`
	Semester        int       `db:"semester" json:"semester"`
	SubjectSpecific bool      `db:"subject_specific" json:"subject_specific"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// InternshipDemand states how many supervising teachers a year needs for one
// internship type, subject and target school type.
type InternshipDemand struct {
	ID               string     `db:"id" json:"id"`
	AcademicYearID   string     `db:"academic_year_id" json:"academic_year_id"`
	InternshipTypeID string     `db:"internship_type_id" json:"internship_type_id"`
	SubjectID        string     `db:"subject_id" json:"subject_id"`
	TargetSchoolType SchoolType `db:"target_school_type" json:"target_school_type"`
	RequiredTeachers int        `db:"required_teachers" json:"required_teachers"`
	Forecast         bool       `db:"forecast" json:"forecast"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// DemandFilter captures filtering options for listing demands.
type DemandFilter struct {
	AcademicYearID   string
	InternshipTypeID string
	Page             int
	PageSize         int
}
