// Package acceptance exercises the booking coordinator against a real
// Postgres instance. Set DATABASE_URL to run; without it the suite skips.
package acceptance

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/internal/migrate"
	"github.com/citywheel/scooterfleet/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrate.Run(context.Background(), db, testLogger()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	cleanupTestData(t, db)
	return db
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()
	// Delete in order of dependencies
	for _, table := range []string{"bookings", "customers", "scooters"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("failed to clean %s: %v", table, err)
		}
	}
}

func createTestCustomer(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO customers (id, auth0_id) VALUES ($1, $2)`,
		id, "auth0|"+id.String())
	if err != nil {
		t.Fatalf("failed to create test customer: %v", err)
	}
	return id
}

func createTestScooter(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var id int64
	err := db.Get(&id, `
		INSERT INTO scooters (location, battery_level)
		VALUES (point(63.422, 10.395), 80)
		RETURNING id`)
	if err != nil {
		t.Fatalf("failed to create test scooter: %v", err)
	}
	return id
}

type sentCommand struct {
	ScooterID int64
	Command   protocol.Command
}

// fakeCommander replies from a script instead of a live scooter.
type fakeCommander struct {
	mu      sync.Mutex
	replies map[protocol.Command]protocol.Status
	err     error
	sent    []sentCommand
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{replies: map[protocol.Command]protocol.Status{
		protocol.CmdStart:          protocol.StatusActivated,
		protocol.CmdStop:           protocol.StatusParkedNormalFare,
		protocol.CmdServiceChecked: protocol.StatusParked,
	}}
}

func (f *fakeCommander) Send(_ context.Context, scooterID int64, cmd protocol.Command) (protocol.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCommand{ScooterID: scooterID, Command: cmd})
	if f.err != nil {
		return "", f.err
	}
	return f.replies[cmd], nil
}

func (f *fakeCommander) sentCommands() []sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCommand(nil), f.sent...)
}

func newTestCoordinator(t *testing.T) (*sqlx.DB, *fakeCommander, *coordinator.Coordinator) {
	t.Helper()
	db := newTestDB(t)
	fc := newFakeCommander()
	return db, fc, coordinator.New(db, fc, testLogger())
}

func scooterFlags(t *testing.T, db *sqlx.DB, scooterID int64) (occupied, needsService bool) {
	t.Helper()
	var row struct {
		Occupied     bool `db:"occupied"`
		NeedsService bool `db:"needs_service"`
	}
	err := db.Get(&row, `SELECT occupied, needs_service FROM scooters WHERE id = $1`, scooterID)
	if err != nil {
		t.Fatalf("failed to read scooter %d: %v", scooterID, err)
	}
	return row.Occupied, row.NeedsService
}

func bookingCount(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT count(*) FROM bookings`); err != nil {
		t.Fatalf("failed to count bookings: %v", err)
	}
	return n
}
