package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type creditYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type creditTeacherReader interface {
	FindByIDExec(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TeacherDetail, error)
}

type creditAssignmentCounter interface {
	CountActiveByTeacherAndYear(ctx context.Context, exec sqlx.ExtContext, teacherID, yearID string) (int, error)
}

type creditHourStore interface {
	FindByTeacherAndYear(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error)
	ListByYear(ctx context.Context, yearID string) ([]models.CreditHourTracking, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, row *models.CreditHourTracking) error
}

type creditCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const defaultCreditCacheTTL = 5 * time.Minute

// CreditHourService recomputes the per-teacher workload ledger. Rows are
// always derived fresh from the live assignment set, never incremented in
// place.
type CreditHourService struct {
	db          *sqlx.DB
	years       creditYearReader
	teachers    creditTeacherReader
	assignments creditAssignmentCounter
	tracking    creditHourStore
	cache       creditCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewCreditHourService constructs the service.
func NewCreditHourService(
	db *sqlx.DB,
	years creditYearReader,
	teachers creditTeacherReader,
	assignments creditAssignmentCounter,
	tracking creditHourStore,
	cache creditCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *CreditHourService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCreditCacheTTL
	}
	return &CreditHourService{
		db:          db,
		years:       years,
		teachers:    teachers,
		assignments: assignments,
		tracking:    tracking,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Recalculate refreshes the ledger row for one teacher and year against the
// service's own connection.
func (s *CreditHourService) Recalculate(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error) {
	return s.RecalculateExec(ctx, s.db, teacherID, yearID)
}

// RecalculateExec refreshes the ledger row using the caller's executor, so a
// surrounding transaction (e.g. an allocation run) can carry the writes.
func (s *CreditHourService) RecalculateExec(ctx context.Context, exec sqlx.ExtContext, teacherID, yearID string) (*models.CreditHourTracking, error) {
	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	teacher, err := s.teachers.FindByIDExec(ctx, exec, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	count, err := s.assignments.CountActiveByTeacherAndYear(ctx, exec, teacherID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}

	hoursPer := year.HoursPerAssignment(teacher.SchoolType)
	allocated := count * hoursPer
	row := &models.CreditHourTracking{
		TeacherID:            teacherID,
		AcademicYearID:       yearID,
		AssignmentsCount:     count,
		CreditHoursAllocated: allocated,
		// A negative balance signals over-allocation; it is reported, not
		// rejected.
		CreditBalance: year.TotalCreditHours - allocated,
	}

	if err := s.tracking.Upsert(ctx, exec, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store credit hour tracking")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, creditCacheKey(teacherID, yearID)); err != nil {
			s.logger.Warn("failed to invalidate credit cache", zap.Error(err))
		}
	}

	s.logger.Debug("credit hours recalculated",
		zap.String("teacher_id", teacherID),
		zap.String("year_id", yearID),
		zap.Int("assignments", count),
		zap.Int("allocated", allocated),
	)
	return row, nil
}

// GetForTeacherAndYear reads the current ledger row, serving from the cache
// when a fresh copy is available.
func (s *CreditHourService) GetForTeacherAndYear(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error) {
	key := creditCacheKey(teacherID, yearID)
	if s.cache != nil {
		var cached models.CreditHourTracking
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to read credit cache", zap.Error(err))
		}
	}

	row, err := s.tracking.FindByTeacherAndYear(ctx, teacherID, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "credit hour tracking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credit hour tracking")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, row, s.cacheTTL); err != nil {
			s.logger.Warn("failed to store credit cache", zap.Error(err))
		}
	}
	return row, nil
}

// InvalidateYear drops every cached ledger row of a year. Used when year-level
// credit budgets change and all balances derived from them go stale.
func (s *CreditHourService) InvalidateYear(ctx context.Context, yearID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, fmt.Sprintf("credits:%s:*", yearID))
}

// ListByYear returns every ledger row of a year.
func (s *CreditHourService) ListByYear(ctx context.Context, yearID string) ([]models.CreditHourTracking, error) {
	rows, err := s.tracking.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list credit hour tracking")
	}
	return rows, nil
}

func creditCacheKey(teacherID, yearID string) string {
	return fmt.Sprintf("credits:%s:%s", yearID, teacherID)
}
