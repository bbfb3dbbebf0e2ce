package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type demandRepository interface {
	List(ctx context.Context, filter models.DemandFilter) ([]models.InternshipDemand, int, error)
	FindByID(ctx context.Context, id string) (*models.InternshipDemand, error)
	Create(ctx context.Context, demand *models.InternshipDemand) error
	Update(ctx context.Context, demand *models.InternshipDemand) error
	Delete(ctx context.Context, id string) error
}

// CreateDemandRequest describes a new demand payload.
type CreateDemandRequest struct {
	AcademicYearID   string            `json:"academic_year_id" validate:"required"`
	InternshipTypeID string            `json:"internship_type_id" validate:"required"`
	SubjectID        string            `json:"subject_id" validate:"required"`
	TargetSchoolType models.SchoolType `json:"target_school_type" validate:"required,oneof=PRIMARY MIDDLE"`
	RequiredTeachers int               `json:"required_teachers" validate:"required,min=1"`
	Forecast         bool              `json:"forecast"`
}

// UpdateDemandRequest patches a demand.
type UpdateDemandRequest struct {
	TargetSchoolType models.SchoolType `json:"target_school_type" validate:"required,oneof=PRIMARY MIDDLE"`
	RequiredTeachers int               `json:"required_teachers" validate:"required,min=1"`
	Forecast         bool              `json:"forecast"`
}

// DemandService manages internship demand records.
type DemandService struct {
	demands   demandRepository
	years     teacherYearReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDemandService constructs the service.
func NewDemandService(demands demandRepository, years teacherYearReader, validate *validator.Validate, logger *zap.Logger) *DemandService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandService{demands: demands, years: years, validator: validate, logger: logger}
}

// List returns paginated demands.
func (s *DemandService) List(ctx context.Context, filter models.DemandFilter) ([]models.InternshipDemand, *models.Pagination, error) {
	demands, total, err := s.demands.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list demands")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return demands, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one demand.
func (s *DemandService) Get(ctx context.Context, id string) (*models.InternshipDemand, error) {
	demand, err := s.demands.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "demand not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demand")
	}
	return demand, nil
}

// Create registers a demand for an unlocked year.
func (s *DemandService) Create(ctx context.Context, req CreateDemandRequest) (*models.InternshipDemand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid demand payload")
	}

	year, err := s.years.FindByID(ctx, req.AcademicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrYearLocked, "")
	}

	demand := &models.InternshipDemand{
		AcademicYearID:   req.AcademicYearID,
		InternshipTypeID: req.InternshipTypeID,
		SubjectID:        req.SubjectID,
		TargetSchoolType: req.TargetSchoolType,
		RequiredTeachers: req.RequiredTeachers,
		Forecast:         req.Forecast,
	}
	if err := s.demands.Create(ctx, demand); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create demand")
	}
	return demand, nil
}

// Update patches demand numbers.
func (s *DemandService) Update(ctx context.Context, id string, req UpdateDemandRequest) (*models.InternshipDemand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid demand payload")
	}

	demand, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	demand.TargetSchoolType = req.TargetSchoolType
	demand.RequiredTeachers = req.RequiredTeachers
	demand.Forecast = req.Forecast
	if err := s.demands.Update(ctx, demand); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update demand")
	}
	return demand, nil
}

// Delete removes a demand.
func (s *DemandService) Delete(ctx context.Context, id string) error {
	if err := s.demands.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "demand not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete demand")
	}
	return nil
}
