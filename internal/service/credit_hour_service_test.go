package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
)

func TestRecalculateDerivesFromAssignmentCount(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.counter.count = 3

	row, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)

	// 3 assignments at the elementary rate of 6 hours each.
	assert.Equal(t, 3, row.AssignmentsCount)
	assert.Equal(t, 18, row.CreditHoursAllocated)
	assert.Equal(t, 42, row.CreditBalance)
	require.Len(t, fx.store.upserts, 1)
	assert.NotContains(t, fx.cache.store, "credits:year-1:t-1", "cache entry invalidated")
}

func TestRecalculateUsesMiddleSchoolRate(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypeMiddle)
	fx.counter.count = 3

	row, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)

	assert.Equal(t, 12, row.CreditHoursAllocated)
	assert.Equal(t, 48, row.CreditBalance)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.counter.count = 2

	first, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)
	second, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)

	// Rows are derived fresh each time, never incremented.
	assert.Equal(t, first.CreditHoursAllocated, second.CreditHoursAllocated)
	assert.Equal(t, first.CreditBalance, second.CreditBalance)
	assert.Len(t, fx.store.upserts, 2)
}

func TestRecalculateAllowsNegativeBalance(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.counter.count = 11

	row, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)

	assert.Equal(t, 66, row.CreditHoursAllocated)
	assert.Equal(t, -6, row.CreditBalance, "over-allocation is reported, not rejected")
}

func TestRecalculateZeroAssignmentsResetsRow(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.counter.count = 0

	row, err := fx.service.Recalculate(context.Background(), "t-1", "year-1")
	require.NoError(t, err)

	assert.Zero(t, row.AssignmentsCount)
	assert.Zero(t, row.CreditHoursAllocated)
	assert.Equal(t, 60, row.CreditBalance)
}

func TestGetForTeacherAndYearServesFromCache(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.cache.store = map[string][]byte{}
	require.NoError(t, fx.store.Upsert(context.Background(), nil, &models.CreditHourTracking{
		TeacherID: "t-1", AcademicYearID: "year-1", AssignmentsCount: 2, CreditHoursAllocated: 12, CreditBalance: 48,
	}))

	first, err := fx.service.GetForTeacherAndYear(context.Background(), "t-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, 12, first.CreditHoursAllocated)
	assert.Contains(t, fx.cache.store, "credits:year-1:t-1")

	// Remove the backing row; the cached copy must still serve.
	delete(fx.store.rows, "t-1|year-1")
	second, err := fx.service.GetForTeacherAndYear(context.Background(), "t-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, first.CreditHoursAllocated, second.CreditHoursAllocated)
	assert.Equal(t, first.CreditBalance, second.CreditBalance)
}

func TestInvalidateYearDropsOnlyThatYear(t *testing.T) {
	fx := newCreditFixture(t, models.SchoolTypePrimary)
	fx.cache.store = map[string][]byte{
		"credits:year-1:t-1": []byte("{}"),
		"credits:year-1:t-2": []byte("{}"),
		"credits:year-2:t-1": []byte("{}"),
	}

	require.NoError(t, fx.service.InvalidateYear(context.Background(), "year-1"))

	assert.NotContains(t, fx.cache.store, "credits:year-1:t-1")
	assert.NotContains(t, fx.cache.store, "credits:year-1:t-2")
	assert.Contains(t, fx.cache.store, "credits:year-2:t-1")
}

// --- Fixtures ---

type creditFixture struct {
	service *CreditHourService
	counter *assignmentCounterStub
	store   *creditStoreStub
	cache   *cacheStub
}

func newCreditFixture(t *testing.T, schoolType models.SchoolType) *creditFixture {
	fx := &creditFixture{
		counter: &assignmentCounterStub{},
		store:   &creditStoreStub{},
		cache:   &cacheStub{store: map[string][]byte{"credits:year-1:t-1": []byte("{}")}},
	}
	fx.service = NewCreditHourService(
		nil,
		yearReaderStub{year: &models.AcademicYear{ID: "year-1", TotalCreditHours: 60, ElementarySchoolHours: 6, MiddleSchoolHours: 4}},
		teacherDetailReaderStub{teacher: &models.TeacherDetail{
			Teacher:    models.Teacher{ID: "t-1", EmploymentStatus: models.EmploymentActive},
			SchoolType: schoolType,
		}},
		fx.counter,
		fx.store,
		fx.cache,
		time.Minute,
		zap.NewNop(),
	)
	return fx
}

type teacherDetailReaderStub struct {
	teacher *models.TeacherDetail
}

func (s teacherDetailReaderStub) FindByIDExec(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherDetail, error) {
	if s.teacher == nil || s.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

type assignmentCounterStub struct {
	count int
}

func (s *assignmentCounterStub) CountActiveByTeacherAndYear(ctx context.Context, exec sqlx.ExtContext, teacherID, yearID string) (int, error) {
	return s.count, nil
}

type creditStoreStub struct {
	upserts []models.CreditHourTracking
	rows    map[string]*models.CreditHourTracking
}

func (s *creditStoreStub) FindByTeacherAndYear(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error) {
	row, ok := s.rows[teacherID+"|"+yearID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (s *creditStoreStub) ListByYear(ctx context.Context, yearID string) ([]models.CreditHourTracking, error) {
	out := make([]models.CreditHourTracking, 0, len(s.rows))
	for _, row := range s.rows {
		if row.AcademicYearID == yearID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *creditStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, row *models.CreditHourTracking) error {
	s.upserts = append(s.upserts, *row)
	if s.rows == nil {
		s.rows = map[string]*models.CreditHourTracking{}
	}
	clone := *row
	s.rows[row.TeacherID+"|"+row.AcademicYearID] = &clone
	return nil
}
