package emailchange

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_change_requests_total",
		Help: "Email change requests accepted.",
	})

	metricConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_change_confirmations_total",
		Help: "Email change confirmation attempts by outcome reason.",
	}, []string{"reason"})

	metricPurgedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_change_purged_tokens_total",
		Help: "Expired email change tokens reaped by the janitor.",
	})
)

func observeConfirmation(out ConfirmOutcome) {
	reason := out.Reason
	if out.OK {
		reason = "ok"
	}
	metricConfirmations.WithLabelValues(reason).Inc()
}
