package mcpconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

func TestParseStdioServer(t *testing.T) {
	doc := `{
		"mcpServers": {
			"filesystem": {
				"command": "npx",
				"args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"],
				"env": {"DEBUG": "1"}
			}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeUser)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	want := domain.ServerConfig{
		Name:      "filesystem",
		Transport: domain.TransportStdio,
		Command:   "npx",
		Args:      []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
		Env:       map[string]string{"DEBUG": "1"},
		Scope:     domain.ScopeUser,
		Enabled:   true,
	}
	if diff := cmp.Diff(want, configs[0]); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInfersHTTPAndSSE(t *testing.T) {
	doc := `{
		"mcpServers": {
			"api": {"url": "https://example.com/mcp"},
			"stream": {"url": "https://example.com/sse"},
			"feed": {"url": "https://example.com/v1/events"}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeProject)
	require.NoError(t, err)
	require.Len(t, configs, 3)

	byName := map[string]domain.ServerConfig{}
	for _, cfg := range configs {
		byName[cfg.Name] = cfg
	}
	require.Equal(t, domain.TransportHTTP, byName["api"].Transport)
	require.Equal(t, domain.TransportSSE, byName["stream"].Transport)
	require.Equal(t, domain.TransportSSE, byName["feed"].Transport)
}

func TestParseClearsCrossTransportFields(t *testing.T) {
	// A url entry wins the transport inference; leftover stdio fields
	// are dropped during normalization rather than rejected.
	doc := `{
		"mcpServers": {
			"api": {"url": "https://example.com/mcp", "command": "npx", "args": ["x"]}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeUser)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, domain.TransportHTTP, configs[0].Transport)
	require.Empty(t, configs[0].Command)
	require.Nil(t, configs[0].Args)
}

func TestParseDropsInvalidEntriesKeepsRest(t *testing.T) {
	doc := `{
		"mcpServers": {
			"good": {"command": "npx"},
			"bad name!": {"command": "npx"},
			"empty": {}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeUser)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "good", configs[0].Name)
}

func TestParseDisabledFlag(t *testing.T) {
	doc := `{
		"mcpServers": {
			"off": {"command": "npx", "disabled": true},
			"auto": {"command": "npx", "autoStart": true}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeUser)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	require.Equal(t, "auto", configs[0].Name)
	require.True(t, configs[0].AutoStart)
	require.Equal(t, "off", configs[1].Name)
	require.False(t, configs[1].Enabled)
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := NewParser(zap.NewNop()).Parse([]byte(`{"mcpServers": [`), domain.ScopeUser)
	require.Error(t, err)
}

func TestParseEmptyDocument(t *testing.T) {
	parser := NewParser(zap.NewNop())

	configs, err := parser.Parse(nil, domain.ScopeUser)
	require.NoError(t, err)
	require.Empty(t, configs)

	configs, err = parser.Parse([]byte(`{}`), domain.ScopeUser)
	require.NoError(t, err)
	require.Empty(t, configs)
}

func TestParseOutputSortedByName(t *testing.T) {
	doc := `{
		"mcpServers": {
			"zeta": {"command": "a"},
			"alpha": {"command": "b"},
			"mid": {"command": "c"}
		}
	}`

	configs, err := NewParser(zap.NewNop()).Parse([]byte(doc), domain.ScopeUser)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, configNames(configs))
}

func TestEncodeDocumentRoundTrip(t *testing.T) {
	parser := NewParser(zap.NewNop())
	original := []domain.ServerConfig{
		{
			Name:      "filesystem",
			Transport: domain.TransportStdio,
			Command:   "npx",
			Args:      []string{"-y", "server"},
			Scope:     domain.ScopeUser,
			Enabled:   true,
			AutoStart: true,
		},
		{
			Name:      "api",
			Transport: domain.TransportHTTP,
			URL:       "https://example.com/mcp",
			Headers:   map[string]string{"Authorization": "Bearer token"},
			Scope:     domain.ScopeUser,
			Enabled:   false,
		},
	}

	data, err := EncodeDocument(original)
	require.NoError(t, err)

	parsed, err := parser.Parse(data, domain.ScopeUser)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, "api", parsed[0].Name)
	require.False(t, parsed[0].Enabled)
	require.Equal(t, "Bearer token", parsed[0].Headers["Authorization"])
	require.Equal(t, "filesystem", parsed[1].Name)
	require.True(t, parsed[1].AutoStart)
}

func configNames(configs []domain.ServerConfig) []string {
	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Name)
	}
	return names
}
