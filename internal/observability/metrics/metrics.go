package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConciergeMetrics exposes counters/histograms for the chat and booking
// flows. All observers are nil-safe so wiring metrics stays optional in
// tests.
type ConciergeMetrics struct {
	chatTurnsTotal     *prometheus.CounterVec
	availabilityTotal  *prometheus.CounterVec
	bookingsTotal      *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	rateLimitedTotal   prometheus.Counter
	sessionsActiveGone prometheus.Counter
}

func NewConciergeMetrics(reg prometheus.Registerer) *ConciergeMetrics {
	m := &ConciergeMetrics{
		chatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns answered, by reply source",
		}, []string{"source"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "booking",
			Name:      "availability_queries_total",
			Help:      "Availability lookups, by outcome",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Reservations submitted to Smoobu, by outcome",
		}, []string{"outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "upstream",
			Name:      "request_seconds",
			Help:      "Latency of upstream provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter",
		}),
		sessionsActiveGone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Sessions evicted after their idle TTL",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTurnsTotal, m.availabilityTotal, m.bookingsTotal, m.upstreamLatency, m.rateLimitedTotal, m.sessionsActiveGone)
	return m
}

func (m *ConciergeMetrics) ObserveChatTurn(source string) {
	if m == nil {
		return
	}
	m.chatTurnsTotal.WithLabelValues(source).Inc()
}

func (m *ConciergeMetrics) ObserveAvailability(outcome string) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(outcome).Inc()
}

func (m *ConciergeMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *ConciergeMetrics) ObserveUpstreamLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ConciergeMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *ConciergeMetrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionsActiveGone.Inc()
}
