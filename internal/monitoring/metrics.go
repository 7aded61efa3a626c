package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_submissions_total",
			Help: "Email submissions by outcome",
		},
		[]string{"status"},
	)

	DrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_draws_total",
			Help: "Prize draws by outcome",
		},
		[]string{"status"},
	)

	DrawRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_draw_retries_total",
			Help: "Conditional decrements lost to a concurrent draw",
		},
	)

	ConnectedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raffle_connected_clients",
			Help: "Currently connected websocket clients per role",
		},
		[]string{"role"},
	)
)
