package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartMetricsServerEmptyAddrDisabled(t *testing.T) {
	require.NoError(t, StartMetricsServer(context.Background(), "", nil, zap.NewNop()))
}

func TestStartMetricsServerShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- StartMetricsServer(ctx, "127.0.0.1:0", prometheus.NewRegistry(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not shut down")
	}
}

func TestStartMetricsServerBadAddr(t *testing.T) {
	err := StartMetricsServer(context.Background(), "not-an-addr", prometheus.NewRegistry(), zap.NewNop())
	require.Error(t, err)
}
