package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.ObserveRoute("TEMPLATE")
	r.ObserveRoute("TEMPLATE")
	r.ObserveRoute("FALLBACK")
	r.ObserveCluster("4")
	r.ObserveGeneration("connection", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.routes.WithLabelValues("TEMPLATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.routes.WithLabelValues("FALLBACK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.classifiers.WithLabelValues("4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("connection")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.genLatency))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveRoute("EMPTY")
		r.ObserveCluster("0")
		r.ObserveGeneration("none", time.Second)
	})
	assert.Nil(t, r.Registry())
}
