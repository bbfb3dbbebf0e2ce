package models

import "time"

// AssignmentStatus of a supervision assignment. CANCELLED assignments stay on
// record but stop counting toward credit hours.
type AssignmentStatus string

const (
	AssignmentPlanned   AssignmentStatus = "PLANNED"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
)

// TeacherAssignment binds a teacher to a demand within one plan. The tuple
// (plan, teacher, internship type, subject) is unique.
type TeacherAssignment struct {
	ID               string           `db:"id" json:"id"`
	PlanID           string           `db:"plan_id" json:"plan_id"`
	TeacherID        string           `db:"teacher_id" json:"teacher_id"`
	InternshipTypeID string           `db:"internship_type_id" json:"internship_type_id"`
	SubjectID        string           `db:"subject_id" json:"subject_id"`
	StudentGroupSize int              `db:"student_group_size" json:"student_group_size"`
	Status           AssignmentStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// TeacherAssignmentDetail joins display names onto an assignment row.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	TeacherName        string `db:"teacher_name" json:"teacher_name"`
	SchoolName         string `db:"school_name" json:"school_name"`
	InternshipTypeCode string `db:"internship_type_code" json:"internship_type_code"`
	SubjectCode        string `db:"subject_code" json:"subject_code"`
}
