package metrics

import (
	"testing"
	"time"

	"checkout-service/internal/reservation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveCommit(t *testing.T) {
	m := New()
	m.ObserveCommit("committed", 10*time.Millisecond)
	m.ObserveCommit("committed", 20*time.Millisecond)
	m.ObserveCommit("insufficient", time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.commits.WithLabelValues("committed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("insufficient")))
	require.Equal(t, 2, testutil.CollectAndCount(m.commitDuration))
}

func TestMetrics_TrackerGauges(t *testing.T) {
	m := New()
	tr := reservation.NewTracker(0)
	m.RegisterTracker(tr)

	require.NoError(t, tr.Track("s1", "a", 1))
	require.NoError(t, tr.Track("s2", "a", 1))
	require.NoError(t, tr.Track("s2", "b", 1))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if g := metric.GetGauge(); g != nil {
				values[f.GetName()] = g.GetValue()
			}
		}
	}
	require.Equal(t, 3.0, values["reservations_active"])
	require.Equal(t, 2.0, values["reservation_sessions_active"])
	require.Equal(t, 2.0, values["reservation_items_active"])
}
