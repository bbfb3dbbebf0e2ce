package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praktika-dev/praktika-api/internal/models"
)

func newRepositoryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func planRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "academic_year_id", "name", "version", "status", "is_current", "notes", "created_at", "updated_at"}).
		AddRow("plan-1", "year-1", "Autumn allocation", "v1", "DRAFT", true, nil, time.Now(), time.Now())
}

func TestPlanRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM allocation_plans WHERE id = $1 FOR UPDATE`)).
		WithArgs("plan-1").
		WillReturnRows(planRows())
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	plan, err := repo.FindByIDForUpdate(context.Background(), tx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-1", plan.ID)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositorySetCurrentRunsBothStatements(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_plans SET is_current = FALSE, updated_at = $2 WHERE academic_year_id = $1 AND is_current = TRUE AND id <> $3`)).
		WithArgs("year-1", sqlmock.AnyArg(), "plan-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_plans SET is_current = TRUE, updated_at = $2 WHERE id = $1`)).
		WithArgs("plan-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.SetCurrent(context.Background(), tx, "year-1", "plan-2"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositorySetCurrentMissingTarget(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_plans SET is_current = FALSE, updated_at = $2 WHERE academic_year_id = $1 AND is_current = TRUE AND id <> $3`)).
		WithArgs("year-1", sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_plans SET is_current = TRUE, updated_at = $2 WHERE id = $1`)).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCurrent(context.Background(), db, "year-1", "ghost")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryUpdateStatusArchivedClearsCurrent(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE allocation_plans SET status = $2,
		is_current = CASE WHEN $2 = 'ARCHIVED' THEN FALSE ELSE is_current END,
		updated_at = $3 WHERE id = $1`)).
		WithArgs("plan-1", models.PlanStatusArchived, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), db, "plan-1", models.PlanStatusArchived))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryExistsByYearAndVersion(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM allocation_plans WHERE academic_year_id = $1 AND version = $2 LIMIT 1`)).
		WithArgs("year-1", "v1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByYearAndVersion(context.Background(), "year-1", "v1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM allocation_plans WHERE academic_year_id = $1 AND version = $2 LIMIT 1`)).
		WithArgs("year-1", "v2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByYearAndVersion(context.Background(), "year-1", "v2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewPlanRepository(db)

	mock.ExpectExec("INSERT INTO allocation_plans").
		WillReturnResult(sqlmock.NewResult(1, 1))

	plan := &models.AllocationPlan{
		AcademicYearID: "year-1",
		Name:           "Autumn allocation",
		Version:        "v1",
		Status:         models.PlanStatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), db, plan))
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
