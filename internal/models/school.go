package models

import "time"

// SchoolType determines the credit hours one assignment consumes.
type SchoolType string

const (
	SchoolTypePrimary SchoolType = "PRIMARY"
	SchoolTypeMiddle  SchoolType = "MIDDLE"
)

// School is a reference record; ZoneNumber feeds the zone eligibility check.
type School struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Type       SchoolType `db:"type" json:"type"`
	ZoneNumber int        `db:"zone_number" json:"zone_number"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
