package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("booking not found")

// Repository serves booking reads. All mutations go through the coordinator
// package, which owns the transactions spanning bookings and scooters.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetByID fetches a single booking by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

const getByIDQuery = `SELECT * FROM bookings WHERE id = $1`

// GetByUserID fetches all bookings for a user, newest first.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, getByUserIDQuery, userID)
	return bookings, err
}

const getByUserIDQuery = `SELECT * FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`

// GetAll fetches every booking in the fleet, newest first. Admin only.
func (r *Repository) GetAll(ctx context.Context) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, getAllQuery)
	return bookings, err
}

const getAllQuery = `SELECT * FROM bookings ORDER BY created_at DESC`

// GetByScooterID fetches the booking currently holding a scooter, if any.
func (r *Repository) GetByScooterID(ctx context.Context, scooterID int64) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, getByScooterIDQuery, scooterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const getByScooterIDQuery = `SELECT * FROM bookings WHERE scooter_id = $1`
