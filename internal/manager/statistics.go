package manager

import "mcpdeck/internal/domain"

// Aggregate computes derived statistics over the current server list
// and invocation count. Capability totals only count connected servers;
// the registry clears capabilities on disconnect so stale data from an
// earlier connection can never contribute. Health percent is
// connected / (total - disabled), 0 when nothing is enabled.
func Aggregate(servers []domain.ServerRuntime, invocations int) domain.Statistics {
	stats := domain.Statistics{
		TotalServers:     len(servers),
		TotalInvocations: invocations,
	}

	for _, server := range servers {
		switch server.Status {
		case domain.StatusConnected:
			stats.ConnectedServers++
			stats.TotalTools += len(server.Capabilities.Tools)
			stats.TotalResources += len(server.Capabilities.Resources)
			stats.TotalPrompts += len(server.Capabilities.Prompts)
		case domain.StatusError:
			stats.ErrorServers++
		case domain.StatusDisabled:
			stats.DisabledServers++
		}
	}

	enabled := stats.TotalServers - stats.DisabledServers
	if enabled > 0 {
		stats.HealthPercent = float64(stats.ConnectedServers) / float64(enabled) * 100
	}
	return stats
}
