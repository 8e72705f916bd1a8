package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestGet_Singleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestCollectors_Count(t *testing.T) {
	c := Get()
	before := value(t, c.Items.WithLabelValues("created"))
	c.Items.WithLabelValues("created").Inc()
	assert.Equal(t, before+1, value(t, c.Items.WithLabelValues("created")))

	c.QueueDepth.Set(3)
	assert.Equal(t, float64(3), value(t, c.QueueDepth))
}
