package models

import "time"

// PlanStatus is the lifecycle state of an allocation plan. Transitions are
// forward-only; ARCHIVED plans are immutable.
type PlanStatus string

const (
	PlanStatusDraft    PlanStatus = "DRAFT"
	PlanStatusInReview PlanStatus = "IN_REVIEW"
	PlanStatusApproved PlanStatus = "APPROVED"
	PlanStatusArchived PlanStatus = "ARCHIVED"
)

var planStatusRank = map[PlanStatus]int{
	PlanStatusDraft:    0,
	PlanStatusInReview: 1,
	PlanStatusApproved: 2,
	PlanStatusArchived: 3,
}

// CanTransitionTo reports whether the status may move to next. Forward jumps
// are allowed, backward moves are not.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	from, ok := planStatusRank[s]
	if !ok {
		return false
	}
	to, ok := planStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// AllocationPlan is one versioned allocation of teachers to demands for an
// academic year. At most one plan per year carries IsCurrent.
type AllocationPlan struct {
	ID             string     `db:"id" json:"id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	Name           string     `db:"name" json:"name"`
	Version        string     `db:"version" json:"version"`
	Status         PlanStatus `db:"status" json:"status"`
	IsCurrent      bool       `db:"is_current" json:"is_current"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PlanFilter captures filtering options for listing plans.
type PlanFilter struct {
	AcademicYearID string
	Status         PlanStatus
	Page           int
	PageSize       int
}
