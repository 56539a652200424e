package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSourceLatency("dwp", time.Second)
		m.IncrementSourceOutcome("dwp", "eligible")
		m.IncrementDedupHit()
		m.IncrementDedupMiss()
		m.IncrementTransition("eligible", "process")
		m.IncrementWorkerMessage("standard", "deleted")
		m.SetQueueDepth("standard", 3)
		m.SetBreakerOpen("dwp", true)
	})
}

func TestCounters(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.IncrementDedupHit()
	m.IncrementDedupHit()
	m.IncrementDedupMiss()
	m.SetBreakerOpen("dwp", true)
	m.SetQueueDepth("bulk", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DedupLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DedupLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerOpen.WithLabelValues("dwp")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.QueueDepth.WithLabelValues("bulk")))
}
