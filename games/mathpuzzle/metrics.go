package mathpuzzle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mathpuzzle"

type metrics struct {
	sessionsActive       prometheus.Gauge
	sessionsDisconnected prometheus.Gauge
	roomsOpen            prometheus.Gauge
	roundsStarted        prometheus.Counter
	roundsResolved       *prometheus.CounterVec
	reconnects           prometheus.Counter
	commands             *prometheus.CounterVec
	commandErrors        *prometheus.CounterVec
	rtt                  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions with a live connection",
		}),
		sessionsDisconnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_disconnected",
			Help:      "Sessions waiting out their reconnect grace",
		}),
		roomsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Rooms currently open",
		}),
		roundsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds dealt",
		}),
		roundsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Rounds settled, by outcome",
		}, []string{"outcome"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Sessions resumed within the reconnect grace",
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands received, by command",
		}, []string{"command"}),
		commandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Client commands rejected, by error kind",
		}, []string{"kind"}),
		rtt: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rtt_milliseconds",
			Help:      "Heartbeat round-trip time",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 9999},
		}),
	}
}
