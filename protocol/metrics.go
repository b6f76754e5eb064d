package protocol

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scooter_commands_sent_total",
			Help: "Total number of commands published to scooters",
		},
		[]string{"command"},
	)

	commandTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scooter_command_timeouts_total",
			Help: "Total number of commands that got no reply within the wait budget",
		},
		[]string{"command"},
	)

	commandMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scooter_command_mismatches_total",
			Help: "Total number of replies that did not answer the command sent",
		},
		[]string{"command"},
	)

	collisionsReported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scooter_collisions_reported_total",
			Help: "Total number of unsolicited collision statuses received",
		},
	)
)

// RegisterMetrics registers the protocol metrics with the given registry.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(commandsSent, commandTimeouts, commandMismatches, collisionsReported)
}
