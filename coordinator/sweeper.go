package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSweepInterval is how often expired pending bookings are reclaimed.
const DefaultSweepInterval = 30 * time.Second

var bookingsSwept = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "scooter_bookings_swept_total",
	Help: "Total number of expired pending bookings reclaimed by the sweeper",
})

// RegisterMetrics registers the coordinator metrics with the given registry.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(bookingsSwept)
}

// Sweeper periodically deletes pending bookings whose hold has lapsed and
// frees their scooters. No command is sent: an expired booking means the
// scooter was never started.
type Sweeper struct {
	db       *sqlx.DB
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(db *sqlx.DB, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{db: db, interval: interval, logger: logger}
}

// Run sweeps on the configured period until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

type expiredBooking struct {
	ID        uuid.UUID `db:"id"`
	ScooterID int64     `db:"scooter_id"`
}

// Sweep runs one reclamation cycle. Each booking is cleaned up in its own
// transaction so one failure cannot abort the rest, and the delete re-checks
// status and expiry under the row lock so a concurrent Activate wins.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	var expired []expiredBooking
	if err := s.db.SelectContext(ctx, &expired, findExpired, now); err != nil {
		s.logger.Error("sweep: failed to list expired bookings", "error", err)
		return
	}

	for _, b := range expired {
		reclaimed, err := s.reclaim(ctx, b, now)
		if err != nil {
			s.logger.Error("sweep: failed to reclaim booking",
				"booking_id", b.ID, "scooter_id", b.ScooterID, "error", err)
			continue
		}
		if !reclaimed {
			continue
		}
		bookingsSwept.Inc()
		s.logger.Info("sweep: reclaimed expired booking",
			"booking_id", b.ID, "scooter_id", b.ScooterID)
	}
}

const findExpired = `SELECT id, scooter_id FROM bookings WHERE status = 'pending' AND expires_at < $1`

func (s *Sweeper) reclaim(ctx context.Context, b expiredBooking, now time.Time) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, deleteExpired, b.ID, now)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Activated or already reclaimed since we listed it.
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, setOccupied, b.ScooterID, false); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

const deleteExpired = `DELETE FROM bookings WHERE id = $1 AND status = 'pending' AND expires_at < $2`
