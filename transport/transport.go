// Package transport is a thin pub/sub wrapper shared by the fleet backend
// and the device controller. Delivery is best effort: at most once, no
// ordering between distinct publishes.
package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// PubSub publishes and subscribes raw payloads on named subjects. Subject
// patterns may use a trailing "*" wildcard token (NATS semantics).
type PubSub interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(subject string, data []byte)) (Subscription, error)
	Close()
}

// Subscription is a handle for an active subscription.
type Subscription interface {
	Unsubscribe() error
}

// Subject scheme. Scoping every subject by scooter ID lets the whole fleet
// share one broker without cross-talk.
const (
	commandPrefix  = "scooter.command."
	statusPrefix   = "scooter.status."
	StatusWildcard = "scooter.status.*"
)

// CommandSubject returns the command subject for one scooter.
func CommandSubject(scooterID int64) string {
	return commandPrefix + strconv.FormatInt(scooterID, 10)
}

// StatusSubject returns the status subject for one scooter.
func StatusSubject(scooterID int64) string {
	return statusPrefix + strconv.FormatInt(scooterID, 10)
}

// ScooterFromStatusSubject extracts the scooter ID from a status subject.
func ScooterFromStatusSubject(subject string) (int64, error) {
	rest, ok := strings.CutPrefix(subject, statusPrefix)
	if !ok {
		return 0, fmt.Errorf("not a status subject: %q", subject)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad scooter id in subject %q: %w", subject, err)
	}
	return id, nil
}
