package console

import "github.com/prometheus/client_golang/prometheus"

var (
	syncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfidconsole_sync_total",
		Help: "Sync cycles by result (success, failure, superseded, cancelled).",
	}, []string{"result"})

	connectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rfidconsole_device_connected",
		Help: "Device connectivity after the last sync: 0=disconnected, 1=connected.",
	})

	scanPollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfidconsole_scan_polls_total",
		Help: "Scan polls by result (detected, empty, error).",
	}, []string{"result"})

	scanSessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfidconsole_scan_sessions_total",
		Help: "Finished scan sessions by outcome.",
	}, []string{"outcome"})

	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfidconsole_mutations_total",
		Help: "Registry mutations by operation and result.",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(syncTotal, connectedGauge, scanPollsTotal, scanSessionsTotal, mutationsTotal)
}
