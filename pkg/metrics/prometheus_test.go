package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordCycle("risk", "ok", 1.5)
	r.RecordSubject("risk", "failed")
	r.RecordSubject("risk", "failed")
	r.RecordAlert("asset_risk_spike", "high")
	r.RecordVolatilityIndex(64.2)
	r.RecordMessageIngested("prices")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("risk", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.subjects.WithLabelValues("risk", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("asset_risk_spike", "high")))
	assert.Equal(t, 64.2, testutil.ToFloat64(r.volatilityIndex))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ingested.WithLabelValues("prices")))
}
