package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus collectors of the service.
type Metrics struct {
	BookingsCreated     prometheus.Counter
	BookingsCancelled   prometheus.Counter
	SeatsReserved       prometheus.Counter
	ReservationRejected *prometheus.CounterVec
	AssignmentsCreated  prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
	StorageErrors       *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of confirmed bookings",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "The total number of bookings moved to CANCELLED",
		}),
		SeatsReserved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_reserved_total",
			Help:      "The total number of seats held by confirmed bookings at creation",
		}),
		ReservationRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_rejected_total",
			Help:      "Reservations rejected by the ledger",
		}, []string{"reason"}),
		AssignmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_assignments_created_total",
			Help:      "The total number of bus-to-route assignments",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Store failures surfaced to callers",
		}, []string{"operation"}),
	}
}
