package scooter

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Scooter represents one fleet scooter as the server sees it. The occupied
// flag is owned by the booking coordinator: it is true exactly while a
// pending or active booking references the scooter.
type Scooter struct {
	// ID is the fleet number. It doubles as the pub/sub subject scope for
	// this scooter's command and status channels.
	ID int64

	Location pgtype.Point

	// BatteryLevel is a percentage, 0-100.
	BatteryLevel int `db:"battery_level"`

	Occupied bool

	// NeedsService is set when the scooter reports a collision and cleared
	// by the maintenance fix flow. While set, no booking may be activated
	// for this scooter.
	NeedsService bool `db:"needs_service"`
}
