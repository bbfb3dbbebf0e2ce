package models

import "time"

// CreditHourTracking is the derived workload ledger row for one teacher and
// year. It is a cache of the live assignment set, never the source of truth.
type CreditHourTracking struct {
	ID                   string    `db:"id" json:"id"`
	TeacherID            string    `db:"teacher_id" json:"teacher_id"`
	AcademicYearID       string    `db:"academic_year_id" json:"academic_year_id"`
	AssignmentsCount     int       `db:"assignments_count" json:"assignments_count"`
	CreditHoursAllocated int       `db:"credit_hours_allocated" json:"credit_hours_allocated"`
	CreditBalance        int       `db:"credit_balance" json:"credit_balance"`
	Notes                *string   `db:"notes" json:"notes,omitempty"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
