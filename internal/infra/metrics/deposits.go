package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		depositInvoicesTotal,
		depositStatusChecksTotal,
		webhookEventsTotal,
		balanceCreditedTotal,
	)
}

var (
	depositInvoicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_invoices_total",
			Help: "Top-up invoice attempts by outcome (created/methods_unavailable/method_not_found/invoice_failed/error).",
		},
		[]string{"outcome"},
	)

	depositStatusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_status_checks_total",
			Help: "Status inquiries by gateway status (or not_found).",
		},
		[]string{"status"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_webhook_events_total",
			Help: "Gateway webhook deliveries by result (confirmed/ignored/invalid_signature/error).",
		},
		[]string{"result"},
	)

	balanceCreditedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "balance_credited_total",
			Help: "Total rupiah credited to user balances via confirmed deposits.",
		},
	)
)

func IncDepositInvoice(outcome string) {
	depositInvoicesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncStatusCheck(status string) {
	depositStatusChecksTotal.WithLabelValues(norm(status)).Inc()
}

func IncWebhookEvent(result string) {
	webhookEventsTotal.WithLabelValues(norm(result)).Inc()
}

func AddBalanceCredited(amount int64) {
	balanceCreditedTotal.Add(float64(amount))
}
