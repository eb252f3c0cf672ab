package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	slotConflicts   prometheus.Counter
	calendarLatency *prometheus.HistogramVec
	emailsTotal     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therapy",
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Booking operations by kind and outcome",
		}, []string{"operation", "status"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "therapy",
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Rejected bookings for an occupied slot",
		}),
		calendarLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "therapy",
			Subsystem: "calendar",
			Name:      "call_latency_seconds",
			Help:      "Latency of remote calendar calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "therapy",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Transactional email sends by outcome",
		}, []string{"template", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflicts, m.calendarLatency, m.emailsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(operation, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, status).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *BookingMetrics) ObserveCalendarLatency(call string, seconds float64) {
	if m == nil {
		return
	}
	m.calendarLatency.WithLabelValues(call).Observe(seconds)
}

func (m *BookingMetrics) ObserveEmail(template, status string) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(template, status).Inc()
}
