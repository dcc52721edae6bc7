package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("ledger:post_audit").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:post_audit").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:post_audit", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:post_audit", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:post_audit")))
}

func TestAddReviews(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddReviews("CA", 2)
	m.AddReviews("CA", 0)
	m.AddReviews("", 1)
	require.Equal(t, 2.0, testutil.ToFloat64(m.reviews.WithLabelValues("CA")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.reviews.WithLabelValues("unknown")))

	var nilMetrics *Metrics
	nilMetrics.AddReviews("CA", 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
