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

// DemandRepository persists internship demand records.
type DemandRepository struct {
	db *sqlx.DB
}

// NewDemandRepository constructs the repository.
func NewDemandRepository(db *sqlx.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// List returns demands matching the filter with a total count.
func (r *DemandRepository) List(ctx context.Context, filter models.DemandFilter) ([]models.InternshipDemand, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		where += fmt.Sprintf(` AND academic_year_id = $%d`, len(args))
	}
	if filter.InternshipTypeID != "" {
		args = append(args, filter.InternshipTypeID)
		where += fmt.Sprintf(` AND internship_type_id = $%d`, len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM internship_demands`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count internship demands: %w", err)
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
	query := `SELECT * FROM internship_demands` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var demands []models.InternshipDemand
	if err := r.db.SelectContext(ctx, &demands, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list internship demands: %w", err)
	}
	return demands, total, nil
}

// ListByYearOrdered returns all demands for a year in the deterministic
// allocation order: internship type semester, subject code, demand ID.
func (r *DemandRepository) ListByYearOrdered(ctx context.Context, exec sqlx.ExtContext, yearID string) ([]models.InternshipDemand, error) {
	const query = `
SELECT d.*
FROM internship_demands d
JOIN internship_types it ON it.id = d.internship_type_id
JOIN subjects s ON s.id = d.subject_id
WHERE d.academic_year_id = $1
ORDER BY it.semester ASC, s.code ASC, d.id ASC`
	var demands []models.InternshipDemand
	if err := sqlx.SelectContext(ctx, exec, &demands, query, yearID); err != nil {
		return nil, fmt.Errorf("list demands for allocation: %w", err)
	}
	return demands, nil
}

// FindByID returns one demand.
func (r *DemandRepository) FindByID(ctx context.Context, id string) (*models.InternshipDemand, error) {
	const query = `SELECT * FROM internship_demands WHERE id = $1`
	var demand models.InternshipDemand
	if err := r.db.GetContext(ctx, &demand, query, id); err != nil {
		return nil, err
	}
	return &demand, nil
}

// Create inserts a new demand.
func (r *DemandRepository) Create(ctx context.Context, demand *models.InternshipDemand) error {
	if demand.ID == "" {
		demand.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	demand.CreatedAt = now
	demand.UpdatedAt = now
	const query = `INSERT INTO internship_demands
		(id, academic_year_id, internship_type_id, subject_id, target_school_type, required_teachers, forecast, created_at, updated_at)
		VALUES (:id, :academic_year_id, :internship_type_id, :subject_id, :target_school_type, :required_teachers, :forecast, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, demand); err != nil {
		return fmt.Errorf("create internship demand: %w", err)
	}
	return nil
}

// Update rewrites the mutable demand fields.
func (r *DemandRepository) Update(ctx context.Context, demand *models.InternshipDemand) error {
	demand.UpdatedAt = time.Now().UTC()
	const query = `UPDATE internship_demands SET
		target_school_type = :target_school_type,
		required_teachers = :required_teachers,
		forecast = :forecast,
		updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, demand)
	if err != nil {
		return fmt.Errorf("update internship demand: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated demand rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a demand.
func (r *DemandRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM internship_demands WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete internship demand: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted demand rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
