// Package device implements the on-scooter controller: the lock/unlock/
// collision state machine, the impact sampling loop that feeds it, and the
// dispatcher that turns inbound commands into state machine triggers.
package device

import (
	"context"
	"time"
)

// Orientation is the scooter's attitude as reported by the IMU.
type Orientation int

const (
	Upright Orientation = iota
	Tilted
	Fallen
)

func (o Orientation) String() string {
	switch o {
	case Upright:
		return "upright"
	case Tilted:
		return "tilted"
	case Fallen:
		return "fallen"
	}
	return "unknown"
}

// IndicatorState is what the rider-facing indicator shows.
type IndicatorState int

const (
	IndicatorOff IndicatorState = iota
	// IndicatorLocked is shown while the scooter is locked.
	IndicatorLocked
	// IndicatorUnlocked is shown while the scooter may be ridden.
	IndicatorUnlocked
	// IndicatorAlert is the blinking collision alert.
	IndicatorAlert
)

// ImpactThreshold is the acceleration magnitude, in g, above which a sample
// counts as an impact.
const ImpactThreshold = 2.5

// Sensor abstracts the scooter's hardware: IMU readings, the acknowledgement
// button and the visual indicator. Implementations must be safe for use from
// the state machine goroutine and the monitor goroutine concurrently.
type Sensor interface {
	// SampleImpact reports whether the latest accelerometer sample exceeds
	// ImpactThreshold, along with the raw magnitude.
	SampleImpact() (impact bool, magnitude float64)

	// SampleOrientation reads the scooter's current attitude.
	SampleOrientation() Orientation

	// WaitForAcknowledgement blocks until the rider presses the
	// acknowledgement button, the timeout elapses, or ctx is cancelled.
	// The indicator blinks the alert pattern for the duration of the wait.
	WaitForAcknowledgement(ctx context.Context, timeout time.Duration) bool

	// SetIndicator switches the visual indicator.
	SetIndicator(IndicatorState)
}
