package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordTicketOutcome("created")
	m.RecordTicketOutcome("created")
	m.RecordTicketOutcome("duplicate")
	m.RecordWebhookTask("rejected")
	m.SetQueueDepth(4)
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.ticketOutcomes.WithLabelValues("created")); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ticketOutcomes.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("duplicate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 4 {
		t.Errorf("queue depth = %v, want 4", got)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("request series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTicketOutcome("created")
	m.RecordError("/", "GET", "NOT_FOUND")
	m.SetQueueDepth(1)
	if m.Registry() == nil {
		t.Error("nil metrics should still expose an empty registry")
	}
}
