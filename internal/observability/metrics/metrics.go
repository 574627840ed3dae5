package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for availability lookups and
// confirmation reminders.
type SchedulingMetrics struct {
	availabilityTotal  *prometheus.CounterVec
	slotsReturned      prometheus.Histogram
	confirmationsTotal *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Availability computations by outcome",
		}, []string{"outcome"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicops",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per availability computation",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "confirmation",
			Name:      "scheduled_total",
			Help:      "Confirmation reminders scheduled by stage",
		}, []string{"stage"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "confirmation",
			Name:      "deliveries_total",
			Help:      "Confirmation reminder delivery attempts by result",
		}, []string{"stage", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityTotal, m.slotsReturned, m.confirmationsTotal, m.deliveriesTotal)
	return m
}

// ObserveAvailability records one computation. outcome is "ok", "closed" or "error".
func (m *SchedulingMetrics) ObserveAvailability(outcome string, slots int) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(outcome).Inc()
	if outcome != "error" {
		m.slotsReturned.Observe(float64(slots))
	}
}

func (m *SchedulingMetrics) ObserveScheduled(stage string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(stage).Inc()
}

// ObserveDelivery records a delivery attempt. result is "sent", "retry" or "failed".
func (m *SchedulingMetrics) ObserveDelivery(stage, result string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(stage, result).Inc()
}
