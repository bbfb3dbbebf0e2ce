package dto

// UnmetDemand reports a demand that could not be fully staffed. Under-staffing
// is a reportable condition, not an error.
type UnmetDemand struct {
	DemandID         string `json:"demand_id"`
	InternshipTypeID string `json:"internship_type_id"`
	SubjectID        string `json:"subject_id"`
	Required         int    `json:"required"`
	Assigned         int    `json:"assigned"`
}

// AllocationResult summarises one matching run over a plan.
type AllocationResult struct {
	PlanID             string        `json:"plan_id"`
	AcademicYearID     string        `json:"academic_year_id"`
	DemandsProcessed   int           `json:"demands_processed"`
	AssignmentsCreated int           `json:"assignments_created"`
	TeachersTouched    int           `json:"teachers_touched"`
	Unmet              []UnmetDemand `json:"unmet,omitempty"`
}
