package device

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSampleInterval is how often the monitor polls the accelerometer.
const DefaultSampleInterval = 30 * time.Millisecond

// Monitor runs the collision sampling loop for the lifetime of the device
// process. It is a pure producer of triggers: it never mutates device state
// itself, it only proposes TriggerCollision while the scooter is active.
type Monitor struct {
	machine  *Machine
	sensor   Sensor
	interval time.Duration
	logger   *slog.Logger
}

func NewMonitor(machine *Machine, sensor Sensor, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{machine: machine, sensor: sensor, interval: interval, logger: logger}
}

// Run samples until ctx is cancelled.
func (mo *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(mo.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			impact, magnitude := mo.sensor.SampleImpact()
			if impact && mo.machine.State() == Active {
				mo.logger.Info("impact detected", "magnitude", magnitude)
				mo.machine.Send(TriggerCollision)
			}
		}
	}
}
