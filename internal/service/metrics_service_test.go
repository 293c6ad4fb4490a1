package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsQueueDepthGauge(t *testing.T) {
	metrics := NewMetricsService()
	depth := 0
	metrics.ObserveQueueDepth("pagebrowser", func() int { return depth })

	sample := func() float64 {
		families, err := metrics.registry.Gather()
		require.NoError(t, err)
		for _, family := range families {
			if family.GetName() != "job_queue_depth" {
				continue
			}
			require.Len(t, family.GetMetric(), 1)
			return family.GetMetric()[0].GetGauge().GetValue()
		}
		t.Fatal("job_queue_depth not registered")
		return 0
	}

	require.Equal(t, float64(0), sample())
	depth = 7
	require.Equal(t, float64(7), sample())
}
