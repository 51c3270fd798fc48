package mcpconfig

import (
	"sort"

	"mcpdeck/internal/domain"
)

// Merge combines per-scope config lists into one list with at most one
// record per name. The record from the highest-priority scope wins
// (managed > project > user); when the same scope supplies a name more
// than once the later-supplied record wins, so callers should pass
// scopes in reading order (user, project, managed). The result is
// sorted by name and merging is idempotent.
func Merge(lists ...[]domain.ServerConfig) []domain.ServerConfig {
	merged := make(map[string]domain.ServerConfig)
	for _, list := range lists {
		for _, cfg := range list {
			existing, ok := merged[cfg.Name]
			if !ok || cfg.Scope.Priority() >= existing.Scope.Priority() {
				merged[cfg.Name] = cfg
			}
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.ServerConfig, 0, len(names))
	for _, name := range names {
		out = append(out, merged[name])
	}
	return out
}
