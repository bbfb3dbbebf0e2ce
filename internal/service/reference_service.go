package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type yearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetLocked(ctx context.Context, id string, locked bool) error
}

type creditLedgerInvalidator interface {
	InvalidateYear(ctx context.Context, yearID string) error
}

type schoolReader interface {
	List(ctx context.Context, activeOnly bool) ([]models.School, error)
}

type subjectReader interface {
	List(ctx context.Context, activeOnly bool) ([]models.Subject, error)
	ListCategories(ctx context.Context) ([]models.SubjectCategory, error)
}

type internshipTypeReader interface {
	List(ctx context.Context) ([]models.InternshipType, error)
}

type zoneReader interface {
	List(ctx context.Context) ([]models.ZoneConstraint, error)
}

// CreateYearRequest registers a new academic year with its budgets.
type CreateYearRequest struct {
	Name                  string     `json:"name" validate:"required"`
	TotalCreditHours      int        `json:"total_credit_hours" validate:"required,min=1"`
	ElementarySchoolHours int        `json:"elementary_school_hours" validate:"required,min=1"`
	MiddleSchoolHours     int        `json:"middle_school_hours" validate:"required,min=1"`
	BudgetAnnouncedAt     *time.Time `json:"budget_announced_at"`
	AllocationDeadline    *time.Time `json:"allocation_deadline"`
}

// UpdateYearRequest rewrites a year's budgets and dates.
type UpdateYearRequest struct {
	Name                  string     `json:"name" validate:"required"`
	TotalCreditHours      int        `json:"total_credit_hours" validate:"required,min=1"`
	ElementarySchoolHours int        `json:"elementary_school_hours" validate:"required,min=1"`
	MiddleSchoolHours     int        `json:"middle_school_hours" validate:"required,min=1"`
	BudgetAnnouncedAt     *time.Time `json:"budget_announced_at"`
	AllocationDeadline    *time.Time `json:"allocation_deadline"`
}

// ReferenceService serves the reference data the planning screens need:
// years, schools, subjects, internship types and zone constraints.
type ReferenceService struct {
	years     yearRepository
	schools   schoolReader
	subjects  subjectReader
	types     internshipTypeReader
	zones     zoneReader
	credits   creditLedgerInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs the service.
func NewReferenceService(
	years yearRepository,
	schools schoolReader,
	subjects subjectReader,
	types internshipTypeReader,
	zones zoneReader,
	credits creditLedgerInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{
		years:     years,
		schools:   schools,
		subjects:  subjects,
		types:     types,
		zones:     zones,
		credits:   credits,
		validator: validate,
		logger:    logger,
	}
}

// ListYears returns all academic years.
func (s *ReferenceService) ListYears(ctx context.Context) ([]models.AcademicYear, error) {
	years, err := s.years.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list years")
	}
	return years, nil
}

// GetYear returns one academic year.
func (s *ReferenceService) GetYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	return year, nil
}

// CreateYear registers a new academic year.
func (s *ReferenceService) CreateYear(ctx context.Context, req CreateYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload")
	}
	year := &models.AcademicYear{
		Name:                  req.Name,
		TotalCreditHours:      req.TotalCreditHours,
		ElementarySchoolHours: req.ElementarySchoolHours,
		MiddleSchoolHours:     req.MiddleSchoolHours,
		BudgetAnnouncedAt:     req.BudgetAnnouncedAt,
		AllocationDeadline:    req.AllocationDeadline,
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create year")
	}
	return year, nil
}

// UpdateYear rewrites a year's budgets and dates. When any credit budget
// changes, every cached ledger row derived from it is dropped.
func (s *ReferenceService) UpdateYear(ctx context.Context, id string, req UpdateYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload")
	}

	year, err := s.GetYear(ctx, id)
	if err != nil {
		return nil, err
	}

	budgetsChanged := year.TotalCreditHours != req.TotalCreditHours ||
		year.ElementarySchoolHours != req.ElementarySchoolHours ||
		year.MiddleSchoolHours != req.MiddleSchoolHours

	year.Name = req.Name
	year.TotalCreditHours = req.TotalCreditHours
	year.ElementarySchoolHours = req.ElementarySchoolHours
	year.MiddleSchoolHours = req.MiddleSchoolHours
	year.BudgetAnnouncedAt = req.BudgetAnnouncedAt
	year.AllocationDeadline = req.AllocationDeadline

	if err := s.years.Update(ctx, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update year")
	}

	if budgetsChanged && s.credits != nil {
		if err := s.credits.InvalidateYear(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate credit cache for year", zap.String("year_id", id), zap.Error(err))
		}
	}
	return year, nil
}

// SetYearLocked toggles the submission lock.
func (s *ReferenceService) SetYearLocked(ctx context.Context, id string, locked bool) (*models.AcademicYear, error) {
	if err := s.years.SetLocked(ctx, id, locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock year")
	}
	return s.GetYear(ctx, id)
}

// ListSchools returns schools.
func (s *ReferenceService) ListSchools(ctx context.Context, activeOnly bool) ([]models.School, error) {
	schools, err := s.schools.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, nil
}

// ListSubjects returns subjects.
func (s *ReferenceService) ListSubjects(ctx context.Context, activeOnly bool) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// ListSubjectCategories returns subject categories.
func (s *ReferenceService) ListSubjectCategories(ctx context.Context) ([]models.SubjectCategory, error) {
	categories, err := s.subjects.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject categories")
	}
	return categories, nil
}

// ListInternshipTypes returns the internship type catalog.
func (s *ReferenceService) ListInternshipTypes(ctx context.Context) ([]models.InternshipType, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list internship types")
	}
	return types, nil
}

// ListZoneConstraints returns zone eligibility rules.
func (s *ReferenceService) ListZoneConstraints(ctx context.Context) ([]models.ZoneConstraint, error) {
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list zone constraints")
	}
	return zones, nil
}
