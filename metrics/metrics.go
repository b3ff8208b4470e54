// Package metrics exports console connection counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rci_console",
		Name:      "snapshots_received_total",
		Help:      "Status snapshots received from the controller.",
	})
	MalformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rci_console",
		Name:      "malformed_payloads_total",
		Help:      "Inbound messages that could not be parsed as a status snapshot.",
	})
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rci_console",
		Name:      "commands_sent_total",
		Help:      "Commands handed to the open channel, by command name.",
	}, []string{"command"})
	CommandsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rci_console",
		Name:      "commands_dropped_total",
		Help:      "Commands dropped because the channel was not open or was saturated.",
	}, []string{"command"})
	Dials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rci_console",
		Name:      "dials_total",
		Help:      "WebSocket dial attempts, by result.",
	}, []string{"result"})
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rci_console",
		Name:      "connection_state",
		Help:      "0 connecting, 1 open, 2 closed normally, 3 closed and retrying.",
	})
)
