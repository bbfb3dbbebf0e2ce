package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

type assignmentRepository interface {
	ListByPlan(ctx context.Context, planID string) ([]models.TeacherAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, planID, teacherID, internshipTypeID, subjectID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error
	Update(ctx context.Context, assignment *models.TeacherAssignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.AllocationPlan, error)
}

type assignmentTeacherReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type assignmentRecalculator interface {
	Recalculate(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error)
}

// CreateAssignmentRequest describes a manual assignment payload.
type CreateAssignmentRequest struct {
	PlanID           string `json:"plan_id" validate:"required"`
	TeacherID        string `json:"teacher_id" validate:"required"`
	InternshipTypeID string `json:"internship_type_id" validate:"required"`
	SubjectID        string `json:"subject_id" validate:"required"`
	StudentGroupSize int    `json:"student_group_size" validate:"omitempty,min=1"`
}

// UpdateAssignmentRequest patches group size and status.
type UpdateAssignmentRequest struct {
	StudentGroupSize *int                     `json:"student_group_size" validate:"omitempty,min=1"`
	Status           *models.AssignmentStatus `json:"status" validate:"omitempty,oneof=PLANNED CONFIRMED CANCELLED"`
}

// AssignmentService is the assignment ledger: it enforces the tuple
// uniqueness rule and keeps the credit-hour ledger in step with every
// mutation.
type AssignmentService struct {
	db               *sqlx.DB
	assignments      assignmentRepository
	plans            assignmentPlanReader
	teachers         assignmentTeacherReader
	credits          assignmentRecalculator
	changeLog        changeLogWriter
	defaultGroupSize int
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(
	db *sqlx.DB,
	assignments assignmentRepository,
	plans assignmentPlanReader,
	teachers assignmentTeacherReader,
	credits assignmentRecalculator,
	changeLog changeLogWriter,
	defaultGroupSize int,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultGroupSize <= 0 {
		defaultGroupSize = 1
	}
	return &AssignmentService{
		db:               db,
		assignments:      assignments,
		plans:            plans,
		teachers:         teachers,
		credits:          credits,
		changeLog:        changeLog,
		defaultGroupSize: defaultGroupSize,
		validator:        validate,
		logger:           logger,
	}
}

// ListByPlan returns a plan's assignments.
func (s *AssignmentService) ListByPlan(ctx context.Context, planID string) ([]models.TeacherAssignmentDetail, error) {
	if _, err := s.loadPlan(ctx, planID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Create stores a manual assignment. Duplicate tuples are rejected with a
// structured conflict, never silently ignored.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest, actor string) (*models.TeacherAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	plan, err := s.loadPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "")
	}

	exists, err := s.teachers.Exists(ctx, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	taken, err := s.assignments.Exists(ctx, s.db, req.PlanID, req.TeacherID, req.InternshipTypeID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "")
	}

	groupSize := req.StudentGroupSize
	if groupSize <= 0 {
		groupSize = s.defaultGroupSize
	}
	assignment := &models.TeacherAssignment{
		PlanID:           req.PlanID,
		TeacherID:        req.TeacherID,
		InternshipTypeID: req.InternshipTypeID,
		SubjectID:        req.SubjectID,
		StudentGroupSize: groupSize,
		Status:           models.AssignmentPlanned,
	}
	if err := s.assignments.Create(ctx, s.db, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.afterMutation(ctx, models.ChangeTypeCreate, assignment, nil, assignment, plan.AcademicYearID, actor)
	return assignment, nil
}

// Update patches group size or status on an existing assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest, actor string) (*models.TeacherAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, assignment.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPlanArchived, "")
	}

	before := *assignment
	if req.StudentGroupSize != nil {
		assignment.StudentGroupSize = *req.StudentGroupSize
	}
	if req.Status != nil {
		assignment.Status = *req.Status
	}
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	s.afterMutation(ctx, models.ChangeTypeUpdate, assignment, &before, assignment, plan.AcademicYearID, actor)
	return assignment, nil
}

// Delete retracts an assignment and refreshes the teacher's ledger.
func (s *AssignmentService) Delete(ctx context.Context, id, actor string) error {
	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return err
	}
	plan, err := s.loadPlan(ctx, assignment.PlanID)
	if err != nil {
		return err
	}
	if plan.Status == models.PlanStatusArchived {
		return appErrors.Clone(appErrors.ErrPlanArchived, "")
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}

	s.afterMutation(ctx, models.ChangeTypeDelete, assignment, assignment, nil, plan.AcademicYearID, actor)
	return nil
}

func (s *AssignmentService) loadAssignment(ctx context.Context, id string) (*models.TeacherAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) loadPlan(ctx context.Context, id string) (*models.AllocationPlan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return plan, nil
}

// afterMutation refreshes the credit-hour ledger and appends the change log.
// Failures here are logged, not surfaced: the assignment write has already
// committed and the ledger can be recomputed on demand.
func (s *AssignmentService) afterMutation(ctx context.Context, changeType string, assignment *models.TeacherAssignment, before, after *models.TeacherAssignment, yearID, actor string) {
	if _, err := s.credits.Recalculate(ctx, assignment.TeacherID, yearID); err != nil {
		s.logger.Warn("failed to recalculate credit hours",
			zap.String("teacher_id", assignment.TeacherID),
			zap.String("year_id", yearID),
			zap.Error(err),
		)
	}

	var oldValues, newValues []byte
	if before != nil {
		oldValues, _ = json.Marshal(before)
	}
	if after != nil {
		newValues, _ = json.Marshal(after)
	}
	entry := &models.PlanChangeLog{
		ChangeType: changeType,
		EntityType: models.EntityAssignment,
		EntityID:   assignment.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Actor:      actor,
	}
	if err := s.changeLog.Create(ctx, s.db, entry); err != nil {
		s.logger.Warn("failed to record assignment change log", zap.Error(err))
	}
}
