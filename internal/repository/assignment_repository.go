package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// AssignmentRepository persists teacher supervision assignments and enforces
// the (plan, teacher, internship type, subject) uniqueness check.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByPlan returns assignments of a plan joined with display names.
func (r *AssignmentRepository) ListByPlan(ctx context.Context, planID string) ([]models.TeacherAssignmentDetail, error) {
	const query = `
SELECT ta.*, t.full_name AS teacher_name, sc.name AS school_name,
       it.code AS internship_type_code, s.code AS subject_code
FROM teacher_assignments ta
JOIN teachers t ON t.id = ta.teacher_id
JOIN schools sc ON sc.id = t.school_id
JOIN internship_types it ON it.id = ta.internship_type_id
JOIN subjects s ON s.id = ta.subject_id
WHERE ta.plan_id = $1
ORDER BY it.semester ASC, s.code ASC, t.full_name ASC`
	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, planID); err != nil {
		return nil, fmt.Errorf("list plan assignments: %w", err)
	}
	return assignments, nil
}

// ListActiveByPlan returns the non-cancelled assignments of a plan, used to
// seed the matching engine's duplicate exclusion.
func (r *AssignmentRepository) ListActiveByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.TeacherAssignment, error) {
	const query = `SELECT * FROM teacher_assignments WHERE plan_id = $1 AND status <> 'CANCELLED'`
	var assignments []models.TeacherAssignment
	if err := sqlx.SelectContext(ctx, exec, &assignments, query, planID); err != nil {
		return nil, fmt.Errorf("list active plan assignments: %w", err)
	}
	return assignments, nil
}

// FindByID returns one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error) {
	const query = `SELECT * FROM teacher_assignments WHERE id = $1`
	var assignment models.TeacherAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Exists checks the uniqueness tuple against non-cancelled assignments.
func (r *AssignmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, planID, teacherID, internshipTypeID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_assignments
		WHERE plan_id = $1 AND teacher_id = $2 AND internship_type_id = $3 AND subject_id = $4 AND status <> 'CANCELLED'
		LIMIT 1`
	var one int
	if err := sqlx.GetContext(ctx, exec, &one, query, planID, teacherID, internshipTypeID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment tuple: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment within the caller's transaction scope.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = models.AssignmentPlanned
	}
	const query = `INSERT INTO teacher_assignments
		(id, plan_id, teacher_id, internship_type_id, subject_id, student_group_size, status, created_at, updated_at)
		VALUES (:id, :plan_id, :teacher_id, :internship_type_id, :subject_id, :student_group_size, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites group size and status.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.TeacherAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_assignments SET student_group_size = :student_group_size, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teacher_assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActiveByTeacherAndYear counts non-cancelled assignments of a teacher
// across every plan of the year. Feeds the credit-hour recalculation.
func (r *AssignmentRepository) CountActiveByTeacherAndYear(ctx context.Context, exec sqlx.ExtContext, teacherID, yearID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM teacher_assignments ta
JOIN allocation_plans p ON p.id = ta.plan_id
WHERE ta.teacher_id = $1 AND p.academic_year_id = $2 AND ta.status <> 'CANCELLED'`
	var count int
	if err := sqlx.GetContext(ctx, exec, &count, query, teacherID, yearID); err != nil {
		return 0, fmt.Errorf("count teacher assignments: %w", err)
	}
	return count, nil
}
