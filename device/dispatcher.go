package device

import (
	"log/slog"

	"github.com/citywheel/scooterfleet/protocol"
	"github.com/citywheel/scooterfleet/transport"
)

// Dispatcher subscribes to the scooter's command subject and forwards each
// command as a trigger, but only when the current state makes it meaningful.
// A command received outside its valid state is dropped, not queued: the
// physical action it requests is already satisfied or impossible.
type Dispatcher struct {
	machine *Machine
	bus     transport.PubSub
	logger  *slog.Logger
}

func NewDispatcher(machine *Machine, bus transport.PubSub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{machine: machine, bus: bus, logger: logger}
}

// Start subscribes to the command subject. The returned subscription stays
// live until unsubscribed or the transport closes.
func (d *Dispatcher) Start(scooterID int64) (transport.Subscription, error) {
	subject := transport.CommandSubject(scooterID)
	return d.bus.Subscribe(subject, func(_ string, data []byte) {
		d.dispatch(protocol.Command(data))
	})
}

func (d *Dispatcher) dispatch(cmd protocol.Command) {
	state := d.machine.State()
	d.logger.Info("received command", "command", string(cmd), "state", state.String())

	switch {
	case cmd == protocol.CmdStart && state == Idle:
		d.machine.Send(TriggerStart)
	case cmd == protocol.CmdStop && state == Active:
		d.machine.Send(TriggerStop)
	case cmd == protocol.CmdServiceChecked && state == CollisionDetected:
		d.machine.Send(TriggerServiceChecked)
	default:
		d.logger.Info("command not valid in current state, ignoring",
			"command", string(cmd), "state", state.String())
	}
}
