package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	tests := []struct {
		name  string
		inc   func()
		value func() float64
	}{
		{
			name:  "http",
			inc:   func() { IncHTTP("/api/v1/{kind}") },
			value: func() float64 { return testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/{kind}")) },
		},
		{
			name:  "chat reconnect",
			inc:   func() { IncChatReconnect("customer") },
			value: func() float64 { return testutil.ToFloat64(chatReconnects.WithLabelValues("customer")) },
		},
		{
			name:  "remote verify",
			inc:   func() { IncRemoteVerify("invalid") },
			value: func() float64 { return testutil.ToFloat64(remoteVerifications.WithLabelValues("invalid")) },
		},
		{
			name:  "amount mismatch",
			inc:   IncAmountMismatch,
			value: func() float64 { return testutil.ToFloat64(amountMismatches) },
		},
		{
			name:  "ledger task",
			inc:   func() { IncLedgerTask("retry") },
			value: func() float64 { return testutil.ToFloat64(ledgerTasks.WithLabelValues("retry")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.value()
			tt.inc()
			tt.inc()
			assert.Equal(t, before+2, tt.value())
		})
	}
}
