package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/citywheel/scooterfleet/protocol"
	"github.com/citywheel/scooterfleet/transport"
)

// statusRecorder collects every status the machine publishes.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []protocol.Status
}

func newStatusRecorder(t *testing.T, bus transport.PubSub) *statusRecorder {
	t.Helper()
	r := &statusRecorder{}
	_, err := bus.Subscribe(transport.StatusWildcard, func(_ string, data []byte) {
		r.mu.Lock()
		r.statuses = append(r.statuses, protocol.Status(data))
		r.mu.Unlock()
	})
	if err != nil {
		t.Fatalf("failed to subscribe status recorder: %v", err)
	}
	return r
}

func (r *statusRecorder) all() []protocol.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Status(nil), r.statuses...)
}

func (r *statusRecorder) expect(t *testing.T, want ...protocol.Status) {
	t.Helper()
	got := r.all()
	if len(got) != len(want) {
		t.Fatalf("published statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published statuses = %v, want %v", got, want)
		}
	}
}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *SimSensor, *statusRecorder) {
	t.Helper()
	bus := transport.NewMemory()
	sensor := NewSimSensor()
	rec := newStatusRecorder(t, bus)
	m := NewMachine(7, sensor, bus, testLogger(), opts...)
	m.enterIdle()
	return m, sensor, rec
}

func TestStartUnlocksScooter(t *testing.T) {
	m, sensor, rec := newTestMachine(t)

	m.apply(context.Background(), TriggerStart)

	if m.State() != Active {
		t.Fatalf("state = %s, want active", m.State())
	}
	if sensor.Indicator() != IndicatorUnlocked {
		t.Fatalf("indicator = %v, want unlocked", sensor.Indicator())
	}
	rec.expect(t, protocol.StatusActivated)
}

func TestStopUprightParksAtNormalFare(t *testing.T) {
	m, sensor, rec := newTestMachine(t)
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Upright)

	m.apply(context.Background(), TriggerStop)

	if m.State() != Idle {
		t.Fatalf("state = %s, want idle", m.State())
	}
	if sensor.Indicator() != IndicatorLocked {
		t.Fatalf("indicator = %v, want locked", sensor.Indicator())
	}
	rec.expect(t, protocol.StatusActivated, protocol.StatusParkedNormalFare)
}

func TestStopFallenParksAtIncreasedFare(t *testing.T) {
	m, sensor, rec := newTestMachine(t)
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Fallen)

	m.apply(context.Background(), TriggerStop)

	if m.State() != Idle {
		t.Fatalf("state = %s, want idle", m.State())
	}
	rec.expect(t, protocol.StatusActivated, protocol.StatusParkedIncreasedFare)
}

func TestCollisionIgnoredWhileUpright(t *testing.T) {
	m, sensor, rec := newTestMachine(t)
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Upright)

	m.apply(context.Background(), TriggerCollision)

	if m.State() != Active {
		t.Fatalf("state = %s, want active after transient jolt", m.State())
	}
	rec.expect(t, protocol.StatusActivated)
}

func TestCollisionAcknowledgedByRider(t *testing.T) {
	m, sensor, rec := newTestMachine(t, WithAckTimeout(time.Second))
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Fallen)
	sensor.Press()

	m.apply(context.Background(), TriggerCollision)

	if m.State() != CollisionDetected {
		t.Fatalf("state = %s, want collision_detected", m.State())
	}
	if sensor.Indicator() != IndicatorLocked {
		t.Fatalf("indicator = %v, want locked after acknowledgement", sensor.Indicator())
	}
	rec.expect(t,
		protocol.StatusActivated,
		protocol.StatusCollision,
		protocol.StatusCollisionAcknowledged)
}

func TestCollisionWithoutRiderResponse(t *testing.T) {
	m, sensor, rec := newTestMachine(t, WithAckTimeout(20*time.Millisecond))
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Fallen)

	m.apply(context.Background(), TriggerCollision)

	if m.State() != CollisionDetected {
		t.Fatalf("state = %s, want collision_detected", m.State())
	}
	rec.expect(t,
		protocol.StatusActivated,
		protocol.StatusCollision,
		protocol.StatusCollisionNoResponse)
}

func TestServiceCheckedReturnsToIdle(t *testing.T) {
	m, sensor, rec := newTestMachine(t, WithAckTimeout(20*time.Millisecond))
	m.apply(context.Background(), TriggerStart)
	sensor.SetOrientation(Fallen)
	m.apply(context.Background(), TriggerCollision)

	m.apply(context.Background(), TriggerServiceChecked)

	if m.State() != Idle {
		t.Fatalf("state = %s, want idle", m.State())
	}
	rec.expect(t,
		protocol.StatusActivated,
		protocol.StatusCollision,
		protocol.StatusCollisionNoResponse,
		protocol.StatusParked)
}

func TestUndefinedTriggersAreNoOps(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(m *Machine, sensor *SimSensor)
		trigger Trigger
		want    State
	}{
		{"stop while idle", func(*Machine, *SimSensor) {}, TriggerStop, Idle},
		{"collision while idle", func(*Machine, *SimSensor) {}, TriggerCollision, Idle},
		{"service check while idle", func(*Machine, *SimSensor) {}, TriggerServiceChecked, Idle},
		{"start while active", func(m *Machine, _ *SimSensor) {
			m.apply(context.Background(), TriggerStart)
		}, TriggerStart, Active},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, sensor, rec := newTestMachine(t)
			tc.setup(m, sensor)
			before := rec.all()

			m.apply(context.Background(), tc.trigger)

			if m.State() != tc.want {
				t.Fatalf("state = %s, want %s", m.State(), tc.want)
			}
			if len(rec.all()) != len(before) {
				t.Fatalf("no-op trigger published a status: %v", rec.all())
			}
		})
	}
}

func TestRunProcessesSentTriggers(t *testing.T) {
	bus := transport.NewMemory()
	sensor := NewSimSensor()
	m := NewMachine(7, sensor, bus, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.Send(TriggerStart)
	waitForState(t, m, Active)

	m.Send(TriggerStop)
	waitForState(t, m, Idle)

	cancel()
	<-done
	if sensor.Indicator() != IndicatorOff {
		t.Fatalf("indicator = %v, want off after shutdown", sensor.Indicator())
	}
}

func waitForState(t *testing.T, m *Machine, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if m.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("state = %s, want %s", m.State(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
