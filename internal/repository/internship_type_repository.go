package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/praktika-dev/praktika-api/internal/models"
)

// InternshipTypeRepository reads the internship type catalog.
type InternshipTypeRepository struct {
	db *sqlx.DB
}

// NewInternshipTypeRepository constructs the repository.
func NewInternshipTypeRepository(db *sqlx.DB) *InternshipTypeRepository {
	return &InternshipTypeRepository{db: db}
}

// List returns internship types ordered by semester.
func (r *InternshipTypeRepository) List(ctx context.Context) ([]models.InternshipType, error) {
	const query = `SELECT * FROM internship_types ORDER BY semester ASC, code ASC`
	var types []models.InternshipType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list internship types: %w", err)
	}
	return types, nil
}

// FindByID returns one internship type.
func (r *InternshipTypeRepository) FindByID(ctx context.Context, id string) (*models.InternshipType, error) {
	const query = `SELECT * FROM internship_types WHERE id = $1`
	var it models.InternshipType
	if err := r.db.GetContext(ctx, &it, query, id); err != nil {
		return nil, err
	}
	return &it, nil
}
