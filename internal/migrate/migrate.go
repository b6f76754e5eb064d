// Package migrate applies the schema at startup and seeds the fleet when
// the scooters table is empty.
package migrate

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         uuid PRIMARY KEY,
		auth0_id   text UNIQUE NOT NULL,
		stripe_id  text,
		email      text,
		name       text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS scooters (
		id            bigserial PRIMARY KEY,
		location      point NOT NULL,
		battery_level int NOT NULL,
		occupied      boolean NOT NULL DEFAULT false,
		needs_service boolean NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           uuid PRIMARY KEY,
		user_id      uuid NOT NULL REFERENCES customers (id),
		scooter_id   bigint NOT NULL REFERENCES scooters (id),
		status       text NOT NULL CHECK (status IN ('pending', 'active')),
		created_at   timestamptz NOT NULL,
		expires_at   timestamptz NOT NULL,
		activated_at timestamptz,
		UNIQUE (scooter_id)
	)`,
}

// Run applies the schema and seeds an initial fleet around the city centre
// if no scooters exist yet.
func Run(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT count(*) FROM scooters`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	logger.Info("seeding initial fleet")
	for i := 0; i < 30; i++ {
		lat := 63.422 + (rand.Float64()-0.5)*0.02
		lng := 10.395 + (rand.Float64()-0.5)*0.08
		battery := 30 + rand.Intn(71)
		_, err := db.ExecContext(ctx,
			`INSERT INTO scooters (location, battery_level) VALUES (point($1, $2), $3)`,
			lat, lng, battery)
		if err != nil {
			return err
		}
	}
	return nil
}
