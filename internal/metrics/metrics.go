package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
)

// Metrics holds the relay's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	webhooks       *prometheus.CounterVec
	recordings     *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	transcriptions *prometheus.CounterVec
	downloadBytes  prometheus.Histogram
}

// New creates the relay metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_webhooks_total",
			Help: "Provider webhook deliveries by route and response status.",
		}, []string{"route", "status"}),
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_recordings_total",
			Help: "Recording post-processing runs by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_notifications_total",
			Help: "Chat notifications by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_transcriptions_total",
			Help: "Transcription requests by outcome.",
		}, []string{"outcome"}),
		downloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hotline_recording_bytes",
			Help:    "Size of downloaded recordings.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}),
	}
	reg.MustRegister(m.webhooks, m.recordings, m.notifications, m.transcriptions, m.downloadBytes)
	return m
}

func (m *Metrics) Webhook(route string, status int) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Recording(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.recordings.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.downloadBytes.Observe(float64(bytes))
	}
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Transcription(outcome string) {
	if m == nil {
		return
	}
	m.transcriptions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
