// Package protocol implements the command/response exchange between the
// fleet backend and individual scooters. Commands and statuses travel as
// plain string payloads over per-scooter pub/sub subjects; correlation is
// by scooter ID only, so callers must never have more than one command in
// flight per scooter.
package protocol

// Command is a remote instruction published on a scooter's command subject.
type Command string

const (
	CmdStart          Command = "start"
	CmdStop           Command = "stop"
	CmdServiceChecked Command = "service_checked"
)

// Status is a message published by a scooter on its status subject, either
// as a reply to a command or unsolicited (collision reporting).
type Status string

const (
	StatusActivated             Status = "activated"
	StatusParkedNormalFare      Status = "parked_normal_fare"
	StatusParkedIncreasedFare   Status = "parked_increased_fare"
	StatusParked                Status = "parked"
	StatusCollision             Status = "collision"
	StatusCollisionAcknowledged Status = "collision_acknowledged"
	StatusCollisionNoResponse   Status = "collision_no_response"
)

// expectedReplies maps each command to the statuses that count as a reply.
// Anything else found in the inbox during a wait is a protocol mismatch.
var expectedReplies = map[Command][]Status{
	CmdStart:          {StatusActivated},
	CmdStop:           {StatusParkedNormalFare, StatusParkedIncreasedFare},
	CmdServiceChecked: {StatusParked},
}

// IsReplyTo reports whether s is one of the expected replies to cmd.
func (s Status) IsReplyTo(cmd Command) bool {
	for _, want := range expectedReplies[cmd] {
		if s == want {
			return true
		}
	}
	return false
}
