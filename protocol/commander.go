package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/citywheel/scooterfleet/transport"
)

var (
	// ErrNoResponse means the scooter did not reply within the wait budget.
	ErrNoResponse = errors.New("no response from scooter")
)

// UnexpectedStatusError means the scooter replied, but not with a status
// that answers the command that was sent.
type UnexpectedStatusError struct {
	Command Command
	Got     Status
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %q in reply to %q", e.Got, e.Command)
}

const (
	// DefaultPollInterval is how often Send checks the inbox for a reply.
	DefaultPollInterval = 150 * time.Millisecond
	// DefaultSendTimeout bounds the whole wait.
	DefaultSendTimeout = 8 * time.Second
)

// Commander publishes commands and correlates status replies by scooter ID.
// The reply inbox holds at most one status per scooter; callers must
// serialize commands per scooter (the booking coordinator's transactional
// row locks do this).
type Commander struct {
	bus          transport.PubSub
	logger       *slog.Logger
	pollInterval time.Duration
	timeout      time.Duration

	// onCollision handles unsolicited collision pushes. Set before Start.
	onCollision func(scooterID int64)

	mu    sync.Mutex
	inbox map[int64]Status

	sub transport.Subscription
}

// CommanderOption configures a Commander.
type CommanderOption func(*Commander)

// WithSendTimeout overrides the reply wait budget.
func WithSendTimeout(d time.Duration) CommanderOption {
	return func(c *Commander) { c.timeout = d }
}

// WithPollInterval overrides the inbox polling interval.
func WithPollInterval(d time.Duration) CommanderOption {
	return func(c *Commander) { c.pollInterval = d }
}

func NewCommander(bus transport.PubSub, logger *slog.Logger, opts ...CommanderOption) *Commander {
	c := &Commander{
		bus:          bus,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultSendTimeout,
		inbox:        make(map[int64]Status),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnCollision registers the handler for unsolicited collision statuses.
// Must be called before Start.
func (c *Commander) OnCollision(fn func(scooterID int64)) {
	c.onCollision = fn
}

// Start subscribes to the whole status family. Collision pushes are routed
// to the collision handler; everything else lands in the reply inbox.
func (c *Commander) Start() error {
	sub, err := c.bus.Subscribe(transport.StatusWildcard, c.receive)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

// Close drops the status subscription.
func (c *Commander) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
}

func (c *Commander) receive(subject string, data []byte) {
	scooterID, err := transport.ScooterFromStatusSubject(subject)
	if err != nil {
		c.logger.Warn("ignoring message on malformed status subject", "subject", subject)
		return
	}
	status := Status(data)
	c.logger.Info("status received", "scooter_id", scooterID, "status", string(status))

	if status == StatusCollision {
		collisionsReported.Inc()
		if c.onCollision != nil {
			c.onCollision(scooterID)
		}
		return
	}

	c.mu.Lock()
	c.inbox[scooterID] = status
	c.mu.Unlock()
}

// take removes and returns the pending status for a scooter, if any.
func (c *Commander) take(scooterID int64) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.inbox[scooterID]
	if ok {
		delete(c.inbox, scooterID)
	}
	return s, ok
}

// Send publishes cmd on the scooter's command subject and polls the inbox
// until a reply arrives or the wait budget runs out. Exactly one status is
// consumed per call. A reply that arrives after the timeout is discarded by
// the next call's initial drain rather than attributed to it.
func (c *Commander) Send(ctx context.Context, scooterID int64, cmd Command) (Status, error) {
	// Drain anything left over from an earlier timed-out exchange.
	if stale, ok := c.take(scooterID); ok {
		c.logger.Warn("discarding stale status", "scooter_id", scooterID, "status", string(stale))
	}

	subject := transport.CommandSubject(scooterID)
	if err := c.bus.Publish(subject, []byte(cmd)); err != nil {
		return "", fmt.Errorf("publish %s to scooter %d: %w", cmd, scooterID, err)
	}
	commandsSent.WithLabelValues(string(cmd)).Inc()
	c.logger.Info("command sent", "scooter_id", scooterID, "command", string(cmd))

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			commandTimeouts.WithLabelValues(string(cmd)).Inc()
			return "", ErrNoResponse
		case <-ticker.C:
			status, ok := c.take(scooterID)
			if !ok {
				continue
			}
			if !status.IsReplyTo(cmd) {
				commandMismatches.WithLabelValues(string(cmd)).Inc()
				return status, &UnexpectedStatusError{Command: cmd, Got: status}
			}
			return status, nil
		}
	}
}
