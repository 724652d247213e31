package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-session-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "test")
	require.NoError(t, err)

	m.Request(metrics.OutcomePassed)
	m.Request(metrics.OutcomePassed)
	m.Request(metrics.OutcomeRetried)
	m.Refresh(metrics.RefreshSucceeded)
	m.Transition("authenticated")

	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests().WithLabelValues(metrics.OutcomePassed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues(metrics.OutcomeRetried)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes().WithLabelValues(metrics.RefreshSucceeded)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Transitions().WithLabelValues("authenticated")))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg, "test")
	require.NoError(t, err)

	_, err = metrics.New(reg, "test")
	require.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.Request(metrics.OutcomePassed)
		m.Refresh(metrics.RefreshFailed)
		m.Transition("failed")
	})
}
