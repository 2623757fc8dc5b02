package service

import "busticket/pkg/metrics"

// recorder updates prometheus collectors. A zero recorder is a no-op.
type recorder struct {
	m *metrics.Metrics
}

func (r recorder) bookingCreated(seats int) {
	if r.m == nil {
		return
	}
	r.m.BookingsCreated.Inc()
	r.m.SeatsReserved.Add(float64(seats))
}

func (r recorder) bookingCancelled() {
	if r.m != nil {
		r.m.BookingsCancelled.Inc()
	}
}

func (r recorder) reservationRejected(reason string) {
	if r.m != nil {
		r.m.ReservationRejected.WithLabelValues(reason).Inc()
	}
}

func (r recorder) assignmentCreated() {
	if r.m != nil {
		r.m.AssignmentsCreated.Inc()
	}
}

func (r recorder) storageFailure(op string) {
	if r.m != nil {
		r.m.StorageErrors.WithLabelValues(op).Inc()
	}
}
