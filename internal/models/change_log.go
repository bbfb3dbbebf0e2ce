package models

import "time"

// ChangeType constants classify plan change log records.
const (
	ChangeTypeCreate       = "CREATE"
	ChangeTypeUpdate       = "UPDATE"
	ChangeTypeDelete       = "DELETE"
	ChangeTypeStatusChange = "STATUS_CHANGE"
)

// Entity type constants for the change log.
const (
	EntityPlan       = "allocation_plan"
	EntityAssignment = "teacher_assignment"
)

// PlanChangeLog is an append-only record of a plan or assignment mutation.
// The core writes it and never reads it back.
type PlanChangeLog struct {
	ID         string    `db:"id" json:"id"`
	ChangeType string    `db:"change_type" json:"change_type"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	Actor      string    `db:"actor" json:"actor"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
