package mcpconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

func TestFileStoreMissingFileReadsEmpty(t *testing.T) {
	store := NewFileStore(zap.NewNop())
	data, err := store.Read(context.Background(), Source{
		Scope: domain.ScopeUser,
		Path:  filepath.Join(t.TempDir(), "absent.json"),
	})
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestFileStoreWriteCreatesParentDirs(t *testing.T) {
	store := NewFileStore(zap.NewNop())
	source := Source{
		Scope: domain.ScopeUser,
		Path:  filepath.Join(t.TempDir(), ".claude", "claude_desktop_config.json"),
	}

	require.NoError(t, store.Write(context.Background(), source, []byte(`{"mcpServers": {}}`)))

	data, err := store.Read(context.Background(), source)
	require.NoError(t, err)
	require.JSONEq(t, `{"mcpServers": {}}`, string(data))
}

func writeConfig(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestLoaderMergesScopes(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.json")
	projectPath := filepath.Join(dir, "project.json")

	writeConfig(t, userPath, `{"mcpServers": {
		"shared": {"command": "user-cmd"},
		"only-user": {"command": "npx"}
	}}`)
	writeConfig(t, projectPath, `{"mcpServers": {
		"shared": {"command": "project-cmd"}
	}}`)

	loader := NewLoader(NewFileStore(zap.NewNop()), NewParser(zap.NewNop()), []Source{
		{Scope: domain.ScopeUser, Path: userPath},
		{Scope: domain.ScopeProject, Path: projectPath},
	}, zap.NewNop())

	configs, err := loader.LoadMerged(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"only-user", "shared"}, configNames(configs))
	require.Equal(t, "project-cmd", configs[1].Command)
	require.Equal(t, domain.ScopeProject, configs[1].Scope)
}

func TestLoaderSkipsMalformedSource(t *testing.T) {
	dir := t.TempDir()
	goodPath := filepath.Join(dir, "good.json")
	badPath := filepath.Join(dir, "bad.json")

	writeConfig(t, goodPath, `{"mcpServers": {"ok": {"command": "npx"}}}`)
	writeConfig(t, badPath, `{"mcpServers": [`)

	loader := NewLoader(NewFileStore(zap.NewNop()), NewParser(zap.NewNop()), []Source{
		{Scope: domain.ScopeUser, Path: goodPath},
		{Scope: domain.ScopeProject, Path: badPath},
	}, zap.NewNop())

	configs, err := loader.LoadMerged(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ok"}, configNames(configs))
}

func TestLoaderMissingSourcesYieldEmptySet(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(NewFileStore(zap.NewNop()), NewParser(zap.NewNop()), []Source{
		{Scope: domain.ScopeUser, Path: filepath.Join(dir, "absent.json")},
	}, zap.NewNop())

	configs, err := loader.LoadMerged(context.Background())
	require.NoError(t, err)
	require.Empty(t, configs)
}

func TestSourceForReturnsFirstMatch(t *testing.T) {
	sources := []Source{
		{Scope: domain.ScopeProject, Path: "/p/.mcp.json"},
		{Scope: domain.ScopeProject, Path: "/p/.claude/mcp.json"},
	}
	loader := NewLoader(NewFileStore(zap.NewNop()), NewParser(zap.NewNop()), sources, zap.NewNop())

	source, ok := loader.SourceFor(domain.ScopeProject)
	require.True(t, ok)
	require.Equal(t, "/p/.mcp.json", source.Path)

	_, ok = loader.SourceFor(domain.ScopeManaged)
	require.False(t, ok)
}
