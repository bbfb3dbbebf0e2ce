package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
)

func TestAssignmentCreateDefaultsAndRecalculates(t *testing.T) {
	fx := newAssignmentFixture(t)

	assignment, err := fx.service.Create(context.Background(), CreateAssignmentRequest{
		PlanID:           "plan-1",
		TeacherID:        "t-1",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
	}, "tester")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentPlanned, assignment.Status)
	assert.Equal(t, 1, assignment.StudentGroupSize, "group size falls back to the configured default")
	assert.Equal(t, []string{"t-1"}, fx.recalc.teachers)
	require.Len(t, fx.changeLog.entries, 1)
	assert.Equal(t, models.EntityAssignment, fx.changeLog.entries[0].EntityType)
	assert.Equal(t, models.ChangeTypeCreate, fx.changeLog.entries[0].ChangeType)
}

func TestAssignmentCreateRejectsDuplicateTuple(t *testing.T) {
	fx := newAssignmentFixture(t)
	fx.repo.rows["a-1"] = &models.TeacherAssignment{
		ID: "a-1", PlanID: "plan-1", TeacherID: "t-1", InternshipTypeID: "sfp", SubjectID: "math", Status: models.AssignmentPlanned,
	}

	_, err := fx.service.Create(context.Background(), CreateAssignmentRequest{
		PlanID:           "plan-1",
		TeacherID:        "t-1",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
	}, "tester")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyAssigned.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.recalc.teachers)
}

func TestAssignmentCreateRejectsArchivedPlan(t *testing.T) {
	fx := newAssignmentFixture(t)
	fx.plans.plan.Status = models.PlanStatusArchived

	_, err := fx.service.Create(context.Background(), CreateAssignmentRequest{
		PlanID:           "plan-1",
		TeacherID:        "t-1",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
	}, "tester")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlanArchived.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateRejectsUnknownTeacher(t *testing.T) {
	fx := newAssignmentFixture(t)
	fx.teachers.known = map[string]struct{}{}

	_, err := fx.service.Create(context.Background(), CreateAssignmentRequest{
		PlanID:           "plan-1",
		TeacherID:        "ghost",
		InternshipTypeID: "sfp",
		SubjectID:        "math",
	}, "tester")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentUpdateCancellationTriggersRecalculation(t *testing.T) {
	fx := newAssignmentFixture(t)
	fx.repo.rows["a-1"] = &models.TeacherAssignment{
		ID: "a-1", PlanID: "plan-1", TeacherID: "t-1", InternshipTypeID: "sfp", SubjectID: "math",
		StudentGroupSize: 2, Status: models.AssignmentPlanned,
	}

	cancelled := models.AssignmentCancelled
	assignment, err := fx.service.Update(context.Background(), "a-1", UpdateAssignmentRequest{Status: &cancelled}, "tester")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentCancelled, assignment.Status)
	assert.Equal(t, 2, assignment.StudentGroupSize, "untouched fields survive the patch")
	assert.Equal(t, []string{"t-1"}, fx.recalc.teachers)
}

func TestAssignmentDeleteRefreshesLedger(t *testing.T) {
	fx := newAssignmentFixture(t)
	fx.repo.rows["a-1"] = &models.TeacherAssignment{
		ID: "a-1", PlanID: "plan-1", TeacherID: "t-1", InternshipTypeID: "sfp", SubjectID: "math", Status: models.AssignmentPlanned,
	}

	require.NoError(t, fx.service.Delete(context.Background(), "a-1", "tester"))

	assert.NotContains(t, fx.repo.rows, "a-1")
	assert.Equal(t, []string{"t-1"}, fx.recalc.teachers)
	require.Len(t, fx.changeLog.entries, 1)
	assert.Equal(t, models.ChangeTypeDelete, fx.changeLog.entries[0].ChangeType)
}

// --- Fixtures ---

type assignmentFixture struct {
	service   *AssignmentService
	repo      *assignmentRepoStub
	plans     *allocPlanRepoStub
	teachers  *teacherExistsStub
	recalc    *namedRecalcStub
	changeLog *changeLogStub
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	fx := &assignmentFixture{
		repo: &assignmentRepoStub{rows: map[string]*models.TeacherAssignment{}},
		plans: &allocPlanRepoStub{plan: &models.AllocationPlan{
			ID: "plan-1", AcademicYearID: "year-1", Status: models.PlanStatusDraft,
		}},
		teachers:  &teacherExistsStub{known: map[string]struct{}{"t-1": {}}},
		recalc:    &namedRecalcStub{},
		changeLog: &changeLogStub{},
	}
	fx.service = NewAssignmentService(
		nil,
		fx.repo,
		fx.plans,
		fx.teachers,
		fx.recalc,
		fx.changeLog,
		1,
		nil,
		zap.NewNop(),
	)
	return fx
}

type assignmentRepoStub struct {
	rows map[string]*models.TeacherAssignment
	seq  int
}

func (s *assignmentRepoStub) ListByPlan(ctx context.Context, planID string) ([]models.TeacherAssignmentDetail, error) {
	out := make([]models.TeacherAssignmentDetail, 0, len(s.rows))
	for _, a := range s.rows {
		if a.PlanID == planID {
			out = append(out, models.TeacherAssignmentDetail{TeacherAssignment: *a})
		}
	}
	return out, nil
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error) {
	a, ok := s.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (s *assignmentRepoStub) Exists(ctx context.Context, exec sqlx.ExtContext, planID, teacherID, internshipTypeID, subjectID string) (bool, error) {
	for _, a := range s.rows {
		if a.PlanID == planID && a.TeacherID == teacherID && a.InternshipTypeID == internshipTypeID &&
			a.SubjectID == subjectID && a.Status != models.AssignmentCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (s *assignmentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	s.seq++
	assignment.ID = fmt.Sprintf("a-new-%d", s.seq)
	clone := *assignment
	s.rows[assignment.ID] = &clone
	return nil
}

func (s *assignmentRepoStub) Update(ctx context.Context, assignment *models.TeacherAssignment) error {
	if _, ok := s.rows[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *assignment
	s.rows[assignment.ID] = &clone
	return nil
}

func (s *assignmentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

type teacherExistsStub struct {
	known map[string]struct{}
}

func (s *teacherExistsStub) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := s.known[id]
	return ok, nil
}

type namedRecalcStub struct {
	teachers []string
}

func (s *namedRecalcStub) Recalculate(ctx context.Context, teacherID, yearID string) (*models.CreditHourTracking, error) {
	s.teachers = append(s.teachers, teacherID)
	return &models.CreditHourTracking{TeacherID: teacherID, AcademicYearID: yearID}, nil
}
