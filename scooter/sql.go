package scooter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("scooter not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetScooters(ctx context.Context) ([]Scooter, error) {
	var scooters []Scooter
	err := r.db.SelectContext(ctx, &scooters, getScooters)
	return scooters, err
}

const getScooters = `SELECT * FROM scooters ORDER BY id`

func (r *Repository) GetScooter(ctx context.Context, id int64) (Scooter, error) {
	var s Scooter
	err := r.db.GetContext(ctx, &s, getScooter, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

const getScooter = `SELECT * FROM scooters WHERE id = $1`

// GetNeedingService lists scooters flagged for maintenance.
func (r *Repository) GetNeedingService(ctx context.Context) ([]Scooter, error) {
	var scooters []Scooter
	err := r.db.SelectContext(ctx, &scooters, getNeedingService)
	return scooters, err
}

const getNeedingService = `SELECT * FROM scooters WHERE needs_service ORDER BY id`
