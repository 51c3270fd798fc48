package mcpconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"mcpdeck/internal/domain"
)

func scopedConfig(name string, scope domain.Scope, command string) domain.ServerConfig {
	return domain.ServerConfig{
		Name:      name,
		Transport: domain.TransportStdio,
		Command:   command,
		Scope:     scope,
		Enabled:   true,
	}
}

func TestMergeHigherScopeWins(t *testing.T) {
	user := []domain.ServerConfig{scopedConfig("shared", domain.ScopeUser, "user-cmd")}
	project := []domain.ServerConfig{scopedConfig("shared", domain.ScopeProject, "project-cmd")}
	managed := []domain.ServerConfig{scopedConfig("shared", domain.ScopeManaged, "managed-cmd")}

	merged := Merge(user, project, managed)
	require.Len(t, merged, 1)
	require.Equal(t, "managed-cmd", merged[0].Command)
	require.Equal(t, domain.ScopeManaged, merged[0].Scope)

	// Winner does not depend on list order.
	merged = Merge(managed, project, user)
	require.Len(t, merged, 1)
	require.Equal(t, "managed-cmd", merged[0].Command)
}

func TestMergeDistinctNamesAllSurvive(t *testing.T) {
	merged := Merge(
		[]domain.ServerConfig{scopedConfig("a", domain.ScopeUser, "x")},
		[]domain.ServerConfig{scopedConfig("b", domain.ScopeProject, "y")},
		[]domain.ServerConfig{scopedConfig("c", domain.ScopeManaged, "z")},
	)
	require.Equal(t, []string{"a", "b", "c"}, configNames(merged))
}

func TestMergeSameScopeLaterWins(t *testing.T) {
	merged := Merge(
		[]domain.ServerConfig{scopedConfig("dup", domain.ScopeUser, "first")},
		[]domain.ServerConfig{scopedConfig("dup", domain.ScopeUser, "second")},
	)
	require.Len(t, merged, 1)
	require.Equal(t, "second", merged[0].Command)
}

func TestMergeIdempotent(t *testing.T) {
	lists := [][]domain.ServerConfig{
		{scopedConfig("a", domain.ScopeUser, "x"), scopedConfig("shared", domain.ScopeUser, "u")},
		{scopedConfig("shared", domain.ScopeProject, "p")},
	}

	once := Merge(lists...)
	twice := Merge(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("merge is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestMergeSortedOutput(t *testing.T) {
	merged := Merge([]domain.ServerConfig{
		scopedConfig("zeta", domain.ScopeUser, "x"),
		scopedConfig("alpha", domain.ScopeUser, "y"),
	})
	require.Equal(t, []string{"alpha", "zeta"}, configNames(merged))
}

func TestMergeEmpty(t *testing.T) {
	require.Empty(t, Merge())
	require.Empty(t, Merge(nil, nil))
}
