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

// AcademicYearRepository persists academic year records.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns all years, newest first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	const query = `SELECT * FROM academic_years ORDER BY name DESC`
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID returns one year.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT * FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// Create inserts a new academic year.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	const query = `INSERT INTO academic_years
		(id, name, is_locked, total_credit_hours, elementary_school_hours, middle_school_hours, budget_announced_at, allocation_deadline, created_at, updated_at)
		VALUES (:id, :name, :is_locked, :total_credit_hours, :elementary_school_hours, :middle_school_hours, :budget_announced_at, :allocation_deadline, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a year.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET
		name = :name,
		total_credit_hours = :total_credit_hours,
		elementary_school_hours = :elementary_school_hours,
		middle_school_hours = :middle_school_hours,
		budget_announced_at = :budget_announced_at,
		allocation_deadline = :allocation_deadline,
		updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, year)
	if err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated year rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetLocked toggles the submission lock on a year.
func (r *AcademicYearRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	const query = `UPDATE academic_years SET is_locked = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, locked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("lock academic year: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check locked year rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
