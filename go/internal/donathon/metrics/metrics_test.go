package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusCollector(reg)

	m.RecordStoreUpdate("delta", true)
	m.RecordStoreUpdate("delta", false)
	m.RecordStoreUpdate("delta", false)
	m.RecordQueueDepth(4)
	m.RecordNotificationShown(true, 2501*time.Millisecond)
	m.RecordEventReceived("donate", true)
	m.RecordPaint(false)
	m.RecordBusMessage("donathon.event", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeUpdates.WithLabelValues("delta", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.storeUpdates.WithLabelValues("delta", "failure")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notificationsShow.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsReceived.WithLabelValues("donate", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.paints.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.busMessages.WithLabelValues("donathon.event", "success")))
}

func TestNoOpCollector(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordQueueDepth(1)
	c.RecordNotificationShown(false, time.Second)
}
