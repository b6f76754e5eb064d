package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("customer not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByAuth0ID(ctx context.Context, auth0ID string) (*Customer, error) {
	var c Customer
	err := r.db.GetContext(ctx, &c, getByAuth0IDQuery, auth0ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

const getByAuth0IDQuery = `SELECT * FROM customers WHERE auth0_id = $1`

// GetOrCreate resolves the customer for an authenticated subject, creating
// the row on first sight.
func (r *Repository) GetOrCreate(ctx context.Context, auth0ID string) (*Customer, error) {
	c, err := r.GetByAuth0ID(ctx, auth0ID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var created Customer
	err = r.db.GetContext(ctx, &created, createCustomerQuery, uuid.New(), auth0ID)
	return &created, err
}

const createCustomerQuery = `INSERT INTO customers (id, auth0_id) VALUES ($1, $2) RETURNING *`

func (r *Repository) AddStripeID(ctx context.Context, auth0ID, stripeID string) error {
	_, err := r.db.ExecContext(ctx, addStripeIDQuery, stripeID, auth0ID)
	return err
}

const addStripeIDQuery = `UPDATE customers SET stripe_id = $1 WHERE auth0_id = $2`
