package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// ChangeLogRepository appends plan change log records. The log is write-only
// for the allocation core.
type ChangeLogRepository struct {
	db *sqlx.DB
}

// NewChangeLogRepository constructs the repository.
func NewChangeLogRepository(db *sqlx.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

// Create appends one change record.
func (r *ChangeLogRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.PlanChangeLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO plan_change_logs
		(id, change_type, entity_type, entity_id, old_values, new_values, actor, created_at)
		VALUES (:id, :change_type, :entity_type, :entity_id, :old_values, :new_values, :actor, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return fmt.Errorf("create plan change log: %w", err)
	}
	return nil
}
