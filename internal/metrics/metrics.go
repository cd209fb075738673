package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "topdivers"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	chatReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_reconnects_total",
			Help:      "Chat WebSocket reconnect attempts by client role.",
		},
		[]string{"role"},
	)

	remoteVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_remote_verifications_total",
			Help:      "Calls to the backend token verification endpoint by result.",
		},
		[]string{"result"},
	)

	amountMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_amount_mismatch_total",
			Help:      "Invoices rejected because the submitted amount differed from the server total.",
		},
	)

	ledgerTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_tasks_total",
			Help:      "Invoice ledger sync tasks by outcome.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, chatReconnects, remoteVerifications, amountMismatches, ledgerTasks)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncChatReconnect(role string) {
	chatReconnects.WithLabelValues(role).Inc()
}

// IncRemoteVerify counts a /auth/verify call: valid, invalid or error.
func IncRemoteVerify(result string) {
	remoteVerifications.WithLabelValues(result).Inc()
}

func IncAmountMismatch() {
	amountMismatches.Inc()
}

func IncLedgerTask(status string) {
	ledgerTasks.WithLabelValues(status).Inc()
}
