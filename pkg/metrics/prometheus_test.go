package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("busticket", reg)

	m.BookingsCreated.Inc()
	m.ReservationRejected.WithLabelValues("insufficient_seats").Add(2)

	if got := testutil.ToFloat64(m.BookingsCreated); got != 1 {
		t.Errorf("expected 1 booking, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReservationRejected.WithLabelValues("insufficient_seats")); got != 2 {
		t.Errorf("expected 2 rejections, got %v", got)
	}

	// A second set on a fresh registry must not collide.
	NewMetrics("busticket", prometheus.NewRegistry())
}
