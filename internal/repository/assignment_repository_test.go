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

func TestAssignmentRepositoryExistsIgnoresCancelled(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM teacher_assignments
		WHERE plan_id = $1 AND teacher_id = $2 AND internship_type_id = $3 AND subject_id = $4 AND status <> 'CANCELLED'
		LIMIT 1`)).
		WithArgs("plan-1", "t-1", "sfp", "math").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	taken, err := repo.Exists(context.Background(), db, "plan-1", "t-1", "sfp", "math")
	require.NoError(t, err)
	assert.True(t, taken)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM teacher_assignments`)).
		WithArgs("plan-1", "t-2", "sfp", "math").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	taken, err = repo.Exists(context.Background(), db, "plan-1", "t-2", "sfp", "math")
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO teacher_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.TeacherAssignment{
		PlanID:           "plan-1",
		TeacherID:        "t-1",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
		StudentGroupSize: 1,
	}
	require.NoError(t, repo.Create(context.Background(), db, assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, models.AssignmentPlanned, assignment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountActiveJoinsPlans(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT COUNT(*)
FROM teacher_assignments ta
JOIN allocation_plans p ON p.id = ta.plan_id
WHERE ta.teacher_id = $1 AND p.academic_year_id = $2 AND ta.status <> 'CANCELLED'`)).
		WithArgs("t-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActiveByTeacherAndYear(context.Background(), db, "t-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("DELETE FROM teacher_assignments").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListActiveByPlan(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "plan_id", "teacher_id", "internship_type_id", "subject_id", "student_group_size", "status"}).
		AddRow("a-1", "plan-1", "t-1", "sfp", "math", 1, "PLANNED")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM teacher_assignments WHERE plan_id = $1 AND status <> 'CANCELLED'`)).
		WithArgs("plan-1").
		WillReturnRows(rows)

	assignments, err := repo.ListActiveByPlan(context.Background(), db, "plan-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "t-1", assignments[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
