package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "donathon"

// Collector defines the interface for collecting overlay metrics
type Collector interface {
	RecordStoreUpdate(source string, accepted bool)
	RecordEventReceived(kind string, rendered bool)
	RecordQueueDepth(depth int)
	RecordNotificationShown(success bool, duration time.Duration)
	RecordPaint(success bool)
	RecordBusMessage(subject string, success bool)
}

// NoOpCollector is a no-op implementation for when metrics aren't needed
type NoOpCollector struct{}

func (NoOpCollector) RecordStoreUpdate(source string, accepted bool)               {}
func (NoOpCollector) RecordEventReceived(kind string, rendered bool)               {}
func (NoOpCollector) RecordQueueDepth(depth int)                                   {}
func (NoOpCollector) RecordNotificationShown(success bool, duration time.Duration) {}
func (NoOpCollector) RecordPaint(success bool)                                     {}
func (NoOpCollector) RecordBusMessage(subject string, success bool)                {}

// PrometheusCollector implements Collector using Prometheus
type PrometheusCollector struct {
	storeUpdates      *prometheus.CounterVec
	eventsReceived    *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	notificationsShow *prometheus.CounterVec
	showDuration      prometheus.Histogram
	paints            *prometheus.CounterVec
	busMessages       *prometheus.CounterVec
}

// NewPrometheusCollector registers the overlay metrics with reg
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		storeUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "updates_total",
				Help:      "Userstore values received, by source and whether they passed validation",
			},
			[]string{"source", "result"},
		),
		eventsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Domain events received, by kind and whether a notification was rendered",
			},
			[]string{"kind", "result"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "queue_depth",
				Help:      "Notifications waiting to be shown",
			},
		),
		notificationsShow: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "shown_total",
				Help:      "Notifications handed to the renderer",
			},
			[]string{"result"},
		),
		showDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of a full show/hide cycle",
				Buckets:   []float64{1, 2, 2.5, 3, 5, 10},
			},
		),
		paints: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "timer",
				Name:      "paints_total",
				Help:      "Timer repaints sent to the renderer",
			},
			[]string{"result"},
		),
		busMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "messages_total",
				Help:      "Host bus messages consumed",
			},
			[]string{"subject", "result"},
		),
	}
}

func (m *PrometheusCollector) RecordStoreUpdate(source string, accepted bool) {
	m.storeUpdates.WithLabelValues(source, result(accepted)).Inc()
}

func (m *PrometheusCollector) RecordEventReceived(kind string, rendered bool) {
	m.eventsReceived.WithLabelValues(kind, result(rendered)).Inc()
}

func (m *PrometheusCollector) RecordQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *PrometheusCollector) RecordNotificationShown(success bool, duration time.Duration) {
	m.notificationsShow.WithLabelValues(result(success)).Inc()
	m.showDuration.Observe(duration.Seconds())
}

func (m *PrometheusCollector) RecordPaint(success bool) {
	m.paints.WithLabelValues(result(success)).Inc()
}

func (m *PrometheusCollector) RecordBusMessage(subject string, success bool) {
	m.busMessages.WithLabelValues(subject, result(success)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
