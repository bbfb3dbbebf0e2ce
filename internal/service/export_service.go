package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/praktika-dev/praktika-api/internal/models"
	appErrors "github.com/praktika-dev/praktika-api/pkg/errors"
	"github.com/praktika-dev/praktika-api/pkg/export"
)

type exportAssignmentReader interface {
	ListByPlan(ctx context.Context, planID string) ([]models.TeacherAssignmentDetail, error)
}

type exportPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.AllocationPlan, error)
}

type exportCreditReader interface {
	ListByYear(ctx context.Context, yearID string) ([]models.CreditHourTracking, error)
}

// PlanReport is a rendered plan export.
type PlanReport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders allocation plans as CSV or PDF reports.
type ExportService struct {
	plans       exportPlanReader
	assignments exportAssignmentReader
	credits     exportCreditReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	title       string
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(
	plans exportPlanReader,
	assignments exportAssignmentReader,
	credits exportCreditReader,
	title string,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		plans:       plans,
		assignments: assignments,
		credits:     credits,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		title:       title,
		logger:      logger,
	}
}

// RenderPlan builds the assignment table of a plan in the requested format
// ("csv" or "pdf") with the per-teacher credit balance joined in.
func (s *ExportService) RenderPlan(ctx context.Context, planID, format string) (*PlanReport, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
	}
	assignments, err := s.assignments.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	credits, err := s.credits.ListByYear(ctx, plan.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list credit hours")
	}

	balance := make(map[string]int, len(credits))
	for _, row := range credits {
		balance[row.TeacherID] = row.CreditBalance
	}

	dataset := export.Dataset{
		Headers: []string{"Teacher", "School", "Internship", "Subject", "Group Size", "Status", "Credit Balance"},
	}
	for _, a := range assignments {
		dataset.Rows = append(dataset.Rows, []string{
			a.TeacherName,
			a.SchoolName,
			a.InternshipTypeCode,
			a.SubjectCode,
			strconv.Itoa(a.StudentGroupSize),
			string(a.Status),
			strconv.Itoa(balance[a.TeacherID]),
		})
	}

	title := fmt.Sprintf("%s %s (%s)", s.title, plan.Name, plan.Version)
	switch strings.ToLower(format) {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &PlanReport{
			FileName:    fmt.Sprintf("plan-%s.csv", plan.Version),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &PlanReport{
			FileName:    fmt.Sprintf("plan-%s.pdf", plan.Version),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
