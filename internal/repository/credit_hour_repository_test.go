package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praktika-dev/praktika-api/internal/models"
)

func TestCreditHourRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewCreditHourRepository(db)

	mock.ExpectExec("INSERT INTO credit_hour_tracking").
		WillReturnResult(sqlmock.NewResult(1, 1))

	row := &models.CreditHourTracking{
		TeacherID:            "t-1",
		AcademicYearID:       "year-1",
		AssignmentsCount:     2,
		CreditHoursAllocated: 12,
		CreditBalance:        48,
	}
	require.NoError(t, repo.Upsert(context.Background(), db, row))
	assert.NotEmpty(t, row.ID)
	assert.False(t, row.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditHourRepositoryAllocatedHoursByYear(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewCreditHourRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "credit_hours_allocated"}).
		AddRow("t-1", 12).
		AddRow("t-2", 4)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT teacher_id, credit_hours_allocated FROM credit_hour_tracking WHERE academic_year_id = $1`)).
		WithArgs("year-1").
		WillReturnRows(rows)

	hours, err := repo.AllocatedHoursByYear(context.Background(), db, "year-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t-1": 12, "t-2": 4}, hours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditHourRepositoryFindByTeacherAndYear(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewCreditHourRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "academic_year_id", "assignments_count", "credit_hours_allocated", "credit_balance"}).
		AddRow("c-1", "t-1", "year-1", 2, 12, 48)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM credit_hour_tracking WHERE teacher_id = $1 AND academic_year_id = $2`)).
		WithArgs("t-1", "year-1").
		WillReturnRows(rows)

	row, err := repo.FindByTeacherAndYear(context.Background(), "t-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, 48, row.CreditBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
