package models

import "time"

// AcademicYear carries the planning window and credit-hour budgets for one
// school year. IsLocked blocks new availability submissions and demand input.
type AcademicYear struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	IsLocked              bool       `db:"is_locked" json:"is_locked"`
	TotalCreditHours      int        `db:"total_credit_hours" json:"total_credit_hours"`
	ElementarySchoolHours int        `db:"elementary_school_hours" json:"elementary_school_hours"`
	MiddleSchoolHours     int        `db:"middle_school_hours" json:"middle_school_hours"`
	BudgetAnnouncedAt     *time.Time `db:"budget_announced_at" json:"budget_announced_at,omitempty"`
	AllocationDeadline    *time.Time `db:"allocation_deadline" json:"allocation_deadline,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// HoursPerAssignment returns the credit hours one supervision assignment
// consumes for a teacher at the given school type.
func (y AcademicYear) HoursPerAssignment(schoolType SchoolType) int {
	if schoolType == SchoolTypePrimary {
		return y.ElementarySchoolHours
	}
	return y.MiddleSchoolHours
}
