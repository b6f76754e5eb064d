// Package coordinator owns every mutation of booking and scooter rows. Each
// lifecycle transition runs inside a single transaction so the booking row
// and the scooter's occupied flag change together or not at all, and the
// remote command to the scooter is confirmed before the transaction commits.
package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/citywheel/scooterfleet/booking"
	"github.com/citywheel/scooterfleet/protocol"
)

var (
	ErrScooterNotFound     = errors.New("scooter not found")
	ErrScooterUnavailable  = errors.New("scooter unavailable")
	ErrScooterNeedsService = errors.New("scooter needs service")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingExpired      = errors.New("booking has expired")
)

// HoldDuration is how long a pending booking reserves a scooter before the
// sweeper reclaims it.
const HoldDuration = 15 * time.Minute

// Commander sends a remote command and waits for the correlated reply.
// Satisfied by protocol.Commander.
type Commander interface {
	Send(ctx context.Context, scooterID int64, cmd protocol.Command) (protocol.Status, error)
}

type Coordinator struct {
	db        *sqlx.DB
	commander Commander
	logger    *slog.Logger
}

func New(db *sqlx.DB, commander Commander, logger *slog.Logger) *Coordinator {
	return &Coordinator{db: db, commander: commander, logger: logger}
}

// Create reserves a scooter: flips occupied and inserts a pending booking in
// one transaction. The FOR UPDATE read closes the race between two
// concurrent creates for the same scooter.
func (c *Coordinator) Create(ctx context.Context, scooterID int64, userID uuid.UUID) (booking.Booking, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return booking.Booking{}, err
	}
	defer tx.Rollback()

	var occupied bool
	err = tx.GetContext(ctx, &occupied, lockScooterOccupied, scooterID)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, ErrScooterNotFound
	}
	if err != nil {
		return booking.Booking{}, err
	}
	if occupied {
		return booking.Booking{}, ErrScooterUnavailable
	}

	if _, err := tx.ExecContext(ctx, setOccupied, scooterID, true); err != nil {
		return booking.Booking{}, err
	}

	now := time.Now()
	var b booking.Booking
	err = tx.GetContext(ctx, &b, insertBooking,
		uuid.New(), userID, scooterID, now, now.Add(HoldDuration))
	if err != nil {
		return booking.Booking{}, err
	}

	if err := tx.Commit(); err != nil {
		return booking.Booking{}, err
	}
	c.logger.Info("booking created",
		"booking_id", b.ID, "scooter_id", scooterID, "expires_at", b.ExpiresAt)
	return b, nil
}

const lockScooterOccupied = `SELECT occupied FROM scooters WHERE id = $1 FOR UPDATE`
const setOccupied = `UPDATE scooters SET occupied = $2 WHERE id = $1`

const insertBooking = `
INSERT INTO bookings (id, user_id, scooter_id, status, created_at, expires_at)
VALUES ($1, $2, $3, 'pending', $4, $5)
RETURNING *
`

// Activate marks a pending booking active and starts the scooter. The row
// update and the remote start command live in the same transaction: if the
// scooter does not confirm with "activated", everything rolls back and the
// booking stays pending.
func (c *Coordinator) Activate(ctx context.Context, bookingID, userID uuid.UUID) (booking.Booking, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return booking.Booking{}, err
	}
	defer tx.Rollback()

	var b booking.Booking
	err = tx.GetContext(ctx, &b, lockPendingBooking, bookingID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return booking.Booking{}, err
	}

	now := time.Now()
	if b.ExpiresAt.Before(now) {
		return booking.Booking{}, ErrBookingExpired
	}

	var needsService bool
	if err := tx.GetContext(ctx, &needsService, lockScooterNeedsService, b.ScooterID); err != nil {
		return booking.Booking{}, err
	}
	if needsService {
		return booking.Booking{}, ErrScooterNeedsService
	}

	if err := tx.GetContext(ctx, &b, markActive, bookingID, now); err != nil {
		return booking.Booking{}, err
	}

	status, err := c.commander.Send(ctx, b.ScooterID, protocol.CmdStart)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("scooter did not activate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		// The scooter is already unlocked but the booking stayed pending.
		// Nothing here can undo the remote side; reconciliation has to
		// pick this up, so make it loud.
		c.logger.Error("commit failed after scooter confirmed start",
			"booking_id", bookingID, "scooter_id", b.ScooterID,
			"reply", string(status), "error", err)
		return booking.Booking{}, err
	}
	c.logger.Info("booking activated", "booking_id", bookingID, "scooter_id", b.ScooterID)
	return b, nil
}

const lockPendingBooking = `
SELECT * FROM bookings WHERE id = $1 AND user_id = $2 AND status = 'pending' FOR UPDATE`

const lockScooterNeedsService = `SELECT needs_service FROM scooters WHERE id = $1 FOR UPDATE`

const markActive = `
UPDATE bookings SET status = 'active', activated_at = $2 WHERE id = $1 RETURNING *`

// Close ends a booking from either state: cancel while pending, or end the
// ride while active. The row is deleted and the scooter freed in one
// transaction; for an active booking the scooter must confirm it parked, and
// the returned receipt carries the fare.
func (c *Coordinator) Close(ctx context.Context, bookingID, userID uuid.UUID) (*Receipt, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b booking.Booking
	err = tx.GetContext(ctx, &b, lockBooking, bookingID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, deleteBooking, bookingID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, setOccupied, b.ScooterID, false); err != nil {
		return nil, err
	}

	var receipt *Receipt
	if b.Status == booking.Active {
		status, err := c.commander.Send(ctx, b.ScooterID, protocol.CmdStop)
		if err != nil {
			return nil, fmt.Errorf("scooter did not park: %w", err)
		}
		r := ComputeReceipt(b.ActivatedAt.Time, time.Now(), status == protocol.StatusParkedIncreasedFare)
		receipt = &r
	}

	if err := tx.Commit(); err != nil {
		if receipt != nil {
			c.logger.Error("commit failed after scooter confirmed stop",
				"booking_id", bookingID, "scooter_id", b.ScooterID, "error", err)
		}
		return nil, err
	}
	c.logger.Info("booking closed",
		"booking_id", bookingID, "scooter_id", b.ScooterID, "was_active", b.Status == booking.Active)
	return receipt, nil
}

const lockBooking = `SELECT * FROM bookings WHERE id = $1 AND user_id = $2 FOR UPDATE`
const deleteBooking = `DELETE FROM bookings WHERE id = $1`

// FixScooter clears the needs_service flag and tells the scooter its service
// check passed. The scooter must confirm with "parked" for the clear to
// commit.
func (c *Coordinator) FixScooter(ctx context.Context, scooterID int64) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, clearNeedsService, scooterID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrScooterNotFound
	}

	if _, err := c.commander.Send(ctx, scooterID, protocol.CmdServiceChecked); err != nil {
		return fmt.Errorf("scooter did not confirm service check: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	c.logger.Info("scooter fixed", "scooter_id", scooterID)
	return nil
}

const clearNeedsService = `UPDATE scooters SET needs_service = false WHERE id = $1`

// HandleCollision reacts to an unsolicited collision push: flag the scooter
// for service, drop any booking holding it and free it, atomically. A
// failure here is logged and not propagated; the device stays the source of
// truth for its own state.
func (c *Coordinator) HandleCollision(scooterID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := func() error {
		tx, err := c.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, flagNeedsService, scooterID); err != nil {
			return err
		}
		// Any surviving booking goes, not just an active one: a pending row
		// left behind by a failed activation commit would otherwise outlive
		// the occupied flag cleared below and block the next create on the
		// uniqueness constraint.
		if _, err := tx.ExecContext(ctx, deleteBookingForScooter, scooterID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, setOccupied, scooterID, false); err != nil {
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		c.logger.Error("failed to record collision", "scooter_id", scooterID, "error", err)
		return
	}
	c.logger.Warn("collision recorded, scooter flagged for service", "scooter_id", scooterID)
}

const flagNeedsService = `UPDATE scooters SET needs_service = true WHERE id = $1`
const deleteBookingForScooter = `DELETE FROM bookings WHERE scooter_id = $1`
