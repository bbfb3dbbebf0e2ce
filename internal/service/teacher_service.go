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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	ListQualifications(ctx context.Context, teacherID string) ([]models.TeacherQualification, error)
	ListAvailabilities(ctx context.Context, teacherID, yearID string) ([]models.TeacherAvailability, error)
	UpsertAvailability(ctx context.Context, av *models.TeacherAvailability) error
}

type teacherYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

// SubmitAvailabilityRequest declares a teacher's stance for one year and
// internship type.
type SubmitAvailabilityRequest struct {
	AcademicYearID   string                    `json:"academic_year_id" validate:"required"`
	InternshipTypeID string                    `json:"internship_type_id" validate:"required"`
	Status           models.AvailabilityStatus `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE TENTATIVE"`
	IsAvailable      bool                      `json:"is_available"`
}

// TeacherService serves teacher reads and the availability submission flow.
type TeacherService struct {
	teachers  teacherRepository
	years     teacherYearReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the service.
func NewTeacherService(teachers teacherRepository, years teacherYearReader, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, years: years, validator: validate, logger: logger}
}

// List returns paginated teachers.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one teacher with school details.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// ListQualifications returns the teacher's qualification records.
func (s *TeacherService) ListQualifications(ctx context.Context, teacherID string) ([]models.TeacherQualification, error) {
	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}
	quals, err := s.teachers.ListQualifications(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
	}
	return quals, nil
}

// ListAvailabilities returns the teacher's declarations for a year.
func (s *TeacherService) ListAvailabilities(ctx context.Context, teacherID, yearID string) ([]models.TeacherAvailability, error) {
	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}
	avails, err := s.teachers.ListAvailabilities(ctx, teacherID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	return avails, nil
}

// SubmitAvailability records a teacher's declaration. Submissions against a
// locked year are rejected.
func (s *TeacherService) SubmitAvailability(ctx context.Context, teacherID string, req SubmitAvailabilityRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
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

	av := &models.TeacherAvailability{
		TeacherID:        teacherID,
		AcademicYearID:   req.AcademicYearID,
		InternshipTypeID: req.InternshipTypeID,
		Status:           req.Status,
		IsAvailable:      req.IsAvailable,
	}
	if err := s.teachers.UpsertAvailability(ctx, av); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability")
	}
	return av, nil
}
