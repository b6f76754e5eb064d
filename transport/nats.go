package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS implements PubSub over core NATS. Core (non-JetStream) publishes are
// fire-and-forget, which is exactly the delivery model the protocol assumes.
type NATS struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Dial connects to the broker with a managed reconnect loop. name shows up
// in NATS monitoring so each scooter and the server are distinguishable.
func Dial(url, name string, logger *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.PingInterval(5*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("broker disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("broker reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATS{nc: nc, logger: logger}, nil
}

func (n *NATS) Publish(subject string, data []byte) error {
	return n.nc.Publish(subject, data)
}

func (n *NATS) Subscribe(subject string, handler func(subject string, data []byte)) (Subscription, error) {
	sub, err := n.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(m.Subject, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

func (n *NATS) Close() {
	n.nc.Close()
}
