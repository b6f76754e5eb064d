package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/citywheel/scooterfleet/protocol"
	"github.com/citywheel/scooterfleet/transport"
)

// State is the device lifecycle state. There is exactly one Machine per
// physical scooter, created in Idle at process start.
type State int

const (
	Idle State = iota
	Active
	CollisionDetected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case CollisionDetected:
		return "collision_detected"
	}
	return "unknown"
}

// Trigger is an event delivered to the state machine, either from the
// command dispatcher or from the collision monitor.
type Trigger int

const (
	TriggerStart Trigger = iota
	TriggerStop
	TriggerCollision
	TriggerServiceChecked
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerStop:
		return "stop"
	case TriggerCollision:
		return "collision"
	case TriggerServiceChecked:
		return "service_checked"
	}
	return "unknown"
}

// DefaultAckTimeout bounds the collision acknowledgement wait.
const DefaultAckTimeout = 120 * time.Second

// Machine owns the device state. All transitions run on the single goroutine
// inside Run; other goroutines only propose triggers via Send and read the
// state via State. A trigger undefined for the current state is a no-op.
type Machine struct {
	scooterID  int64
	sensor     Sensor
	bus        transport.PubSub
	logger     *slog.Logger
	ackTimeout time.Duration

	events chan Trigger

	mu    sync.Mutex
	state State
}

// Option configures a Machine.
type Option func(*Machine)

// WithAckTimeout overrides the collision acknowledgement wait. Tests use
// this to keep the synchronous entry action short.
func WithAckTimeout(d time.Duration) Option {
	return func(m *Machine) { m.ackTimeout = d }
}

func NewMachine(scooterID int64, sensor Sensor, bus transport.PubSub, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		scooterID:  scooterID,
		sensor:     sensor,
		bus:        bus,
		logger:     logger.With(slog.Int64("scooter_id", scooterID)),
		ackTimeout: DefaultAckTimeout,
		events:     make(chan Trigger, 16),
		state:      Idle,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current state. Safe to call from any goroutine.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Send proposes a trigger. It never blocks; if the event queue is full the
// trigger is dropped, which is acceptable for every producer we have (the
// monitor re-detects, the server retries by timeout).
func (m *Machine) Send(t Trigger) {
	select {
	case m.events <- t:
	default:
		m.logger.Warn("event queue full, dropping trigger", "trigger", t.String())
	}
}

// Run processes triggers until ctx is cancelled. The first entry into Idle
// locks the scooter, matching the entry action of every later return to Idle.
func (m *Machine) Run(ctx context.Context) {
	m.enterIdle()
	for {
		select {
		case <-ctx.Done():
			m.sensor.SetIndicator(IndicatorOff)
			return
		case t := <-m.events:
			m.apply(ctx, t)
		}
	}
}

// apply is the transition function. One trigger at a time; entry actions
// complete before the transition is considered settled, so the collision
// acknowledgement wait deliberately blocks this loop.
func (m *Machine) apply(ctx context.Context, t Trigger) {
	state := m.State()
	switch {
	case state == Idle && t == TriggerStart:
		m.sensor.SetIndicator(IndicatorUnlocked)
		m.logger.Info("scooter unlocked")
		m.publish(protocol.StatusActivated)
		m.setState(Active)

	case state == Active && t == TriggerStop:
		if m.sensor.SampleOrientation() == Upright {
			m.publish(protocol.StatusParkedNormalFare)
		} else {
			m.publish(protocol.StatusParkedIncreasedFare)
		}
		m.enterIdle()

	case state == Active && t == TriggerCollision:
		if m.sensor.SampleOrientation() == Upright {
			// Transient jolt, scooter still standing: stay active.
			m.logger.Debug("collision trigger ignored, scooter upright")
			return
		}
		m.enterCollisionDetected(ctx)

	case state == CollisionDetected && t == TriggerServiceChecked:
		m.publish(protocol.StatusParked)
		m.enterIdle()

	default:
		m.logger.Debug("trigger not defined for state, ignoring",
			"state", state.String(), "trigger", t.String())
	}
}

func (m *Machine) enterIdle() {
	m.sensor.SetIndicator(IndicatorLocked)
	m.logger.Info("scooter locked")
	m.setState(Idle)
}

func (m *Machine) enterCollisionDetected(ctx context.Context) {
	m.setState(CollisionDetected)
	m.sensor.SetIndicator(IndicatorLocked)
	m.logger.Info("scooter locked after collision")
	m.publish(protocol.StatusCollision)

	acknowledged := m.sensor.WaitForAcknowledgement(ctx, m.ackTimeout)
	m.sensor.SetIndicator(IndicatorLocked)
	if acknowledged {
		m.logger.Info("rider acknowledged collision")
		m.publish(protocol.StatusCollisionAcknowledged)
	} else {
		m.logger.Warn("no rider response to collision")
		m.publish(protocol.StatusCollisionNoResponse)
	}
}

func (m *Machine) publish(status protocol.Status) {
	subject := transport.StatusSubject(m.scooterID)
	if err := m.bus.Publish(subject, []byte(status)); err != nil {
		m.logger.Error("failed to publish status", "status", string(status), "error", err)
		return
	}
	m.logger.Info("published status", "status", string(status))
}
