package manager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcpdeck/internal/domain"
)

func runtimeWith(name string, status domain.ServerStatus, tools int) domain.ServerRuntime {
	rt := domain.ServerRuntime{
		ServerConfig: domain.ServerConfig{Name: name},
		Status:       status,
	}
	for i := 0; i < tools; i++ {
		rt.Capabilities.Tools = append(rt.Capabilities.Tools, domain.Tool{Name: "t"})
	}
	return rt
}

func TestAggregateCountsByStatus(t *testing.T) {
	stats := Aggregate([]domain.ServerRuntime{
		runtimeWith("a", domain.StatusConnected, 3),
		runtimeWith("b", domain.StatusConnected, 2),
		runtimeWith("c", domain.StatusError, 0),
		runtimeWith("d", domain.StatusDisabled, 0),
		runtimeWith("e", domain.StatusStopped, 0),
	}, 7)

	require.Equal(t, 5, stats.TotalServers)
	require.Equal(t, 2, stats.ConnectedServers)
	require.Equal(t, 1, stats.ErrorServers)
	require.Equal(t, 1, stats.DisabledServers)
	require.Equal(t, 5, stats.TotalTools)
	require.Equal(t, 7, stats.TotalInvocations)
	// 2 connected of 4 enabled.
	require.InDelta(t, 50.0, stats.HealthPercent, 0.001)
}

func TestAggregateIgnoresStaleCapabilities(t *testing.T) {
	// An error server still carrying capabilities must not count them.
	rt := runtimeWith("a", domain.StatusError, 4)
	stats := Aggregate([]domain.ServerRuntime{rt}, 0)
	require.Equal(t, 0, stats.TotalTools)
}

func TestAggregateHealthPercentEdgeCases(t *testing.T) {
	require.Zero(t, Aggregate(nil, 0).HealthPercent)

	allDisabled := Aggregate([]domain.ServerRuntime{
		runtimeWith("a", domain.StatusDisabled, 0),
	}, 0)
	require.Zero(t, allDisabled.HealthPercent)

	allConnected := Aggregate([]domain.ServerRuntime{
		runtimeWith("a", domain.StatusConnected, 0),
	}, 0)
	require.InDelta(t, 100.0, allConnected.HealthPercent, 0.001)
}
