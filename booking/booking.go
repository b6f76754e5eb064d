package booking

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Status is the persisted booking lifecycle state. A booking row only ever
// exists as pending or active; closing a booking deletes the row.
type Status int

const (
	Pending Status = iota
	Active
)

func (s Status) String() string {
	return [...]string{"pending", "active"}[s]
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) Scan(i any) error {
	switch v := i.(type) {
	case string:
		switch v {
		case "pending":
			*s = Pending
			return nil
		case "active":
			*s = Active
			return nil
		}
	case []byte:
		return s.Scan(string(v))
	}
	return fmt.Errorf("invalid booking status: %v", i)
}

// Booking reserves one scooter for one user. At most one pending-or-active
// booking exists per scooter at any time.
type Booking struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ScooterID int64     `db:"scooter_id"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	// ExpiresAt is only meaningful while the booking is pending.
	ExpiresAt time.Time `db:"expires_at"`
	// ActivatedAt is set when the booking becomes active.
	ActivatedAt sql.NullTime `db:"activated_at"`
}

// Expired reports whether a pending booking's hold has lapsed at the given
// time.
func (b Booking) Expired(now time.Time) bool {
	return b.Status == Pending && b.ExpiresAt.Before(now)
}
