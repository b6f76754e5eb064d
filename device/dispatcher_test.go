package device

import (
	"testing"

	"github.com/citywheel/scooterfleet/protocol"
	"github.com/citywheel/scooterfleet/transport"
)

func TestDispatcherGatesCommandsByState(t *testing.T) {
	cases := []struct {
		name   string
		state  State
		cmd    protocol.Command
		want   Trigger
		queued bool
	}{
		{"start while idle", Idle, protocol.CmdStart, TriggerStart, true},
		{"stop while active", Active, protocol.CmdStop, TriggerStop, true},
		{"service check after collision", CollisionDetected, protocol.CmdServiceChecked, TriggerServiceChecked, true},
		{"stop while idle", Idle, protocol.CmdStop, 0, false},
		{"start while active", Active, protocol.CmdStart, 0, false},
		{"service check while active", Active, protocol.CmdServiceChecked, 0, false},
		{"start after collision", CollisionDetected, protocol.CmdStart, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := transport.NewMemory()
			m := NewMachine(7, NewSimSensor(), bus, testLogger())
			m.setState(tc.state)
			d := NewDispatcher(m, bus, testLogger())

			d.dispatch(tc.cmd)

			select {
			case got := <-m.events:
				if !tc.queued {
					t.Fatalf("command %q queued trigger %s in state %s", tc.cmd, got, tc.state)
				}
				if got != tc.want {
					t.Fatalf("trigger = %s, want %s", got, tc.want)
				}
			default:
				if tc.queued {
					t.Fatalf("command %q queued nothing in state %s", tc.cmd, tc.state)
				}
			}
		})
	}
}

func TestDispatcherSubscribesToCommandSubject(t *testing.T) {
	bus := transport.NewMemory()
	m := NewMachine(42, NewSimSensor(), bus, testLogger())
	d := NewDispatcher(m, bus, testLogger())

	sub, err := d.Start(42)
	if err != nil {
		t.Fatalf("failed to start dispatcher: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish(transport.CommandSubject(42), []byte(protocol.CmdStart))
	select {
	case got := <-m.events:
		if got != TriggerStart {
			t.Fatalf("trigger = %s, want start", got)
		}
	default:
		t.Fatal("command on own subject did not queue a trigger")
	}

	// Another scooter's subject must not reach this machine.
	bus.Publish(transport.CommandSubject(43), []byte(protocol.CmdStart))
	select {
	case got := <-m.events:
		t.Fatalf("trigger %s queued from another scooter's subject", got)
	default:
	}
}
