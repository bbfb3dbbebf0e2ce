package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// CreditHourRepository persists the derived workload ledger rows.
type CreditHourRepository struct {
	db *sqlx.DB
}

// NewCreditHourRepository constructs the repository.
func NewCreditHourRepository(db *sqlx.DB) *CreditHourRepository {
	return &CreditHourRepository{db: db}
}

// FindByTeacherAndYear returns the ledger row for one teacher and year.
func (r *CreditHourRepository) FindByTeacherAndYear(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error) {
	const query = `SELECT * FROM credit_hour_tracking WHERE teacher_id = $1 AND academic_year_id = $2`
	var row models.CreditHourTracking
	if err := r.db.GetContext(ctx, &row, query, teacherID, yearID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByYear returns every ledger row of the year.
func (r *CreditHourRepository) ListByYear(ctx context.Context, yearID string) ([]models.CreditHourTracking, error) {
	const query = `SELECT * FROM credit_hour_tracking WHERE academic_year_id = $1 ORDER BY credit_hours_allocated DESC`
	var rows []models.CreditHourTracking
	if err := r.db.SelectContext(ctx, &rows, query, yearID); err != nil {
		return nil, fmt.Errorf("list credit hour tracking: %w", err)
	}
	return rows, nil
}

// AllocatedHoursByYear returns the allocated credit hours per teacher for the
// year. The matching engine seeds its fairness ordering from this map.
func (r *CreditHourRepository) AllocatedHoursByYear(ctx context.Context, exec sqlx.ExtContext, yearID string) (map[string]int, error) {
	const query = `SELECT teacher_id, credit_hours_allocated FROM credit_hour_tracking WHERE academic_year_id = $1`
	var rows []struct {
		TeacherID string `db:"teacher_id"`
		Hours     int    `db:"credit_hours_allocated"`
	}
	if err := sqlx.SelectContext(ctx, exec, &rows, query, yearID); err != nil {
		return nil, fmt.Errorf("load allocated hours: %w", err)
	}
	hours := make(map[string]int, len(rows))
	for _, row := range rows {
		hours[row.TeacherID] = row.Hours
	}
	return hours, nil
}

// Upsert writes the single ledger row for (teacher, year).
func (r *CreditHourRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, row *models.CreditHourTracking) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO credit_hour_tracking
		(id, teacher_id, academic_year_id, assignments_count, credit_hours_allocated, credit_balance, notes, updated_at)
		VALUES (:id, :teacher_id, :academic_year_id, :assignments_count, :credit_hours_allocated, :credit_balance, :notes, :updated_at)
		ON CONFLICT (teacher_id, academic_year_id)
		DO UPDATE SET assignments_count = EXCLUDED.assignments_count,
			credit_hours_allocated = EXCLUDED.credit_hours_allocated,
			credit_balance = EXCLUDED.credit_balance,
			updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, row); err != nil {
		return fmt.Errorf("upsert credit hour tracking: %w", err)
	}
	return nil
}
