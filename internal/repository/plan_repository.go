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

// PlanRepository persists allocation plans and owns the single-current-plan
// write path.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// List returns plans matching the filter with a total count.
func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.AllocationPlan, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		where += fmt.Sprintf(` AND academic_year_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM allocation_plans`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
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
	query := `SELECT * FROM allocation_plans` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var plans []models.AllocationPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	return plans, total, nil
}

// FindByID returns one plan.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.AllocationPlan, error) {
	const query = `SELECT * FROM allocation_plans WHERE id = $1`
	var plan models.AllocationPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByIDForUpdate loads the plan under a row lock. Concurrent allocation
// runs against the same plan serialize here.
func (r *PlanRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.AllocationPlan, error) {
	const query = `SELECT * FROM allocation_plans WHERE id = $1 FOR UPDATE`
	var plan models.AllocationPlan
	if err := sqlx.GetContext(ctx, exec, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindCurrentByYear returns the current plan for the year, if any.
func (r *PlanRepository) FindCurrentByYear(ctx context.Context, yearID string) (*models.AllocationPlan, error) {
	const query = `SELECT * FROM allocation_plans WHERE academic_year_id = $1 AND is_current = TRUE`
	var plan models.AllocationPlan
	if err := r.db.GetContext(ctx, &plan, query, yearID); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ExistsByYearAndVersion checks the (year, version) uniqueness rule.
func (r *PlanRepository) ExistsByYearAndVersion(ctx context.Context, yearID, version string) (bool, error) {
	const query = `SELECT 1 FROM allocation_plans WHERE academic_year_id = $1 AND version = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, yearID, version); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check plan version: %w", err)
	}
	return true, nil
}

// Create inserts a new plan.
func (r *PlanRepository) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	const query = `INSERT INTO allocation_plans
		(id, academic_year_id, name, version, status, is_current, notes, created_at, updated_at)
		VALUES (:id, :academic_year_id, :name, :version, :status, :is_current, :notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, plan); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// Update rewrites mutable plan fields (name, notes) inside the caller's
// transaction.
func (r *PlanRepository) Update(ctx context.Context, exec sqlx.ExtContext, plan *models.AllocationPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE allocation_plans SET name = :name, notes = :notes, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, exec, query, plan)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated plan rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves the plan to a new lifecycle state inside the caller's
// transaction. Archiving drops the current flag so an archived plan never
// stays authoritative.
func (r *PlanRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PlanStatus) error {
	const query = `UPDATE allocation_plans SET status = $2,
		is_current = CASE WHEN $2 = 'ARCHIVED' THEN FALSE ELSE is_current END,
		updated_at = $3 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check plan status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetCurrent clears the current flag on every sibling plan for the year and
// sets it on the target, inside the caller's transaction. The two statements
// are never exposed separately.
func (r *PlanRepository) SetCurrent(ctx context.Context, exec sqlx.ExtContext, yearID, planID string) error {
	now := time.Now().UTC()
	const unset = `UPDATE allocation_plans SET is_current = FALSE, updated_at = $2 WHERE academic_year_id = $1 AND is_current = TRUE AND id <> $3`
	if _, err := exec.ExecContext(ctx, unset, yearID, now, planID); err != nil {
		return fmt.Errorf("unset current plans: %w", err)
	}
	const set = `UPDATE allocation_plans SET is_current = TRUE, updated_at = $2 WHERE id = $1`
	result, err := exec.ExecContext(ctx, set, planID, now)
	if err != nil {
		return fmt.Errorf("set current plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check current plan rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
