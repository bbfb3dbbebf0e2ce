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

// TeacherRepository persists teachers and their qualification, availability
// and year-scoped subject records.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching the filter with a total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND t.full_name ILIKE $%d`, len(args))
	}
	if filter.SchoolID != "" {
		args = append(args, filter.SchoolID)
		where += fmt.Sprintf(` AND t.school_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND t.employment_status = $%d`, len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teachers t`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := `
SELECT t.*, s.name AS school_name, s.type AS school_type, s.zone_number
FROM teachers t
JOIN schools s ON s.id = t.school_id` + where +
		fmt.Sprintf(` ORDER BY t.full_name ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID returns one teacher joined with its school.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	const query = `
SELECT t.*, s.name AS school_name, s.type AS school_type, s.zone_number
FROM teachers t
JOIN schools s ON s.id = t.school_id
WHERE t.id = $1`
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByIDExec is the transaction-aware variant of FindByID.
func (r *TeacherRepository) FindByIDExec(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherDetail, error) {
	const query = `
SELECT t.*, s.name AS school_name, s.type AS school_type, s.zone_number
FROM teachers t
JOIN schools s ON s.id = t.school_id
WHERE t.id = $1`
	var teacher models.TeacherDetail
	if err := sqlx.GetContext(ctx, exec, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// LoadYearPool builds the flattened eligibility snapshot for one academic
// year: every teacher with its school attributes, the qualification subject
// sets, the year-scoped subject declarations and the per-internship-type
// availability declarations.
func (r *TeacherRepository) LoadYearPool(ctx context.Context, exec sqlx.ExtContext, yearID string) (*models.TeacherPool, error) {
	pool := &models.TeacherPool{
		Teachers:       make(map[string]models.PoolTeacher),
		Qualifications: make(map[string]map[string]struct{}),
		SubjectStatus:  make(map[string]map[string]string),
		Availability:   make(map[string]map[string]models.PoolAvailability),
	}

	const teacherQuery = `
SELECT t.id, t.employment_status, t.part_time, s.type AS school_type, s.zone_number
FROM teachers t
JOIN schools s ON s.id = t.school_id
WHERE s.active = TRUE`
	var teachers []models.PoolTeacher
	if err := sqlx.SelectContext(ctx, exec, &teachers, teacherQuery); err != nil {
		return nil, fmt.Errorf("load teacher pool: %w", err)
	}
	for _, t := range teachers {
		pool.Teachers[t.ID] = t
	}

	const qualQuery = `SELECT teacher_id, subject_id FROM teacher_qualifications`
	var quals []struct {
		TeacherID string `db:"teacher_id"`
		SubjectID string `db:"subject_id"`
	}
	if err := sqlx.SelectContext(ctx, exec, &quals, qualQuery); err != nil {
		return nil, fmt.Errorf("load teacher qualifications: %w", err)
	}
	for _, q := range quals {
		if pool.Qualifications[q.TeacherID] == nil {
			pool.Qualifications[q.TeacherID] = make(map[string]struct{})
		}
		pool.Qualifications[q.TeacherID][q.SubjectID] = struct{}{}
	}

	const subjectQuery = `SELECT teacher_id, subject_id, status FROM teacher_subjects WHERE academic_year_id = $1`
	var subjects []struct {
		TeacherID string `db:"teacher_id"`
		SubjectID string `db:"subject_id"`
		Status    string `db:"status"`
	}
	if err := sqlx.SelectContext(ctx, exec, &subjects, subjectQuery, yearID); err != nil {
		return nil, fmt.Errorf("load teacher subjects: %w", err)
	}
	for _, ts := range subjects {
		if pool.SubjectStatus[ts.TeacherID] == nil {
			pool.SubjectStatus[ts.TeacherID] = make(map[string]string)
		}
		pool.SubjectStatus[ts.TeacherID][ts.SubjectID] = ts.Status
	}

	const availQuery = `SELECT teacher_id, internship_type_id, status, is_available FROM teacher_availabilities WHERE academic_year_id = $1`
	var avails []struct {
		TeacherID        string                    `db:"teacher_id"`
		InternshipTypeID string                    `db:"internship_type_id"`
		Status           models.AvailabilityStatus `db:"status"`
		IsAvailable      bool                      `db:"is_available"`
	}
	if err := sqlx.SelectContext(ctx, exec, &avails, availQuery, yearID); err != nil {
		return nil, fmt.Errorf("load teacher availabilities: %w", err)
	}
	for _, av := range avails {
		if pool.Availability[av.TeacherID] == nil {
			pool.Availability[av.TeacherID] = make(map[string]models.PoolAvailability)
		}
		pool.Availability[av.TeacherID][av.InternshipTypeID] = models.PoolAvailability{
			Status:      av.Status,
			IsAvailable: av.IsAvailable,
		}
	}

	return pool, nil
}

// ListQualifications returns the subjects a teacher is qualified for.
func (r *TeacherRepository) ListQualifications(ctx context.Context, teacherID string) ([]models.TeacherQualification, error) {
	const query = `SELECT * FROM teacher_qualifications WHERE teacher_id = $1 ORDER BY created_at ASC`
	var quals []models.TeacherQualification
	if err := r.db.SelectContext(ctx, &quals, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher qualifications: %w", err)
	}
	return quals, nil
}

// ListAvailabilities returns the teacher's declarations for one year.
func (r *TeacherRepository) ListAvailabilities(ctx context.Context, teacherID, yearID string) ([]models.TeacherAvailability, error) {
	const query = `SELECT * FROM teacher_availabilities WHERE teacher_id = $1 AND academic_year_id = $2`
	var avails []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &avails, query, teacherID, yearID); err != nil {
		return nil, fmt.Errorf("list teacher availabilities: %w", err)
	}
	return avails, nil
}

// UpsertAvailability creates or replaces the declaration for one
// (teacher, year, internship type).
func (r *TeacherRepository) UpsertAvailability(ctx context.Context, av *models.TeacherAvailability) error {
	if av.ID == "" {
		av.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if av.CreatedAt.IsZero() {
		av.CreatedAt = now
	}
	av.UpdatedAt = now
	const query = `INSERT INTO teacher_availabilities
		(id, teacher_id, academic_year_id, internship_type_id, status, is_available, created_at, updated_at)
		VALUES (:id, :teacher_id, :academic_year_id, :internship_type_id, :status, :is_available, :created_at, :updated_at)
		ON CONFLICT (teacher_id, academic_year_id, internship_type_id)
		DO UPDATE SET status = EXCLUDED.status, is_available = EXCLUDED.is_available, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, av); err != nil {
		return fmt.Errorf("upsert teacher availability: %w", err)
	}
	return nil
}

// Exists reports whether the teacher record is present.
func (r *TeacherRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM teachers WHERE id = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher: %w", err)
	}
	return true, nil
}
