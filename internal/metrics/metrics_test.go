package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Quote("sedan", "ok")
		m.Search("ok", time.Second)
		m.QuotaDecision("unknown")
		m.DistanceSource("haversine")
		m.Booking("created")
		m.Bookings("expired", 3)
		m.Notification("fcm", "sent")
		m.HTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.Quote("sedan", "ok")
	m.Quote("sedan", "ok")
	m.Search("stale", 10*time.Millisecond)
	m.DistanceSource("route")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.quotesTotal.WithLabelValues("sedan", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchesTotal.WithLabelValues("stale")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "vtc_quotes_total"), "missing quote counter in exposition")
	assert.True(t, strings.Contains(body, `vtc_distance_source_total{source="route"} 1`))
}
