package models

import "time"

// SubjectCategory groups subjects for reporting.
type SubjectCategory struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is reference data keyed by a short code (e.g. EN, MA).
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	CategoryID *string   `db:"category_id" json:"category_id,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
