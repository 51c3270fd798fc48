package domain

import (
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// TransportKind selects how a configured server is reached.
type TransportKind string

const (
	// TransportStdio: the server is a local subprocess speaking MCP over
	// its stdin/stdout.
	TransportStdio TransportKind = "stdio"

	// TransportHTTP: the server is reached over a streamable HTTP endpoint.
	TransportHTTP TransportKind = "http"

	// TransportSSE: the server is reached over a legacy SSE endpoint.
	TransportSSE TransportKind = "sse"
)

// Scope identifies the configuration layer a server definition came from.
// Higher-priority scopes override lower ones when the same name appears
// in several layers.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeManaged Scope = "managed"
)

// Priority orders scopes for merge conflict resolution: user < project < managed.
func (s Scope) Priority() int {
	switch s {
	case ScopeManaged:
		return 3
	case ScopeProject:
		return 2
	case ScopeUser:
		return 1
	default:
		return 0
	}
}

// ServerStatus is the lifecycle state of a managed server.
type ServerStatus string

const (
	StatusDisabled   ServerStatus = "disabled"
	StatusStopped    ServerStatus = "stopped"
	StatusConnecting ServerStatus = "connecting"
	StatusConnected  ServerStatus = "connected"
	StatusError      ServerStatus = "error"
)

// ServerConfig is the static, persisted definition of a server.
// Exactly one of Command/URL is populated, matching Transport.
type ServerConfig struct {
	Name      string            `json:"name"`
	Transport TransportKind     `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Scope     Scope             `json:"scope"`
	Enabled   bool              `json:"enabled"`
	AutoStart bool              `json:"autoStart"`
}

// Clone returns a deep copy so callers cannot mutate registry state
// through a returned config.
func (c ServerConfig) Clone() ServerConfig {
	out := c
	out.Args = append([]string(nil), c.Args...)
	out.Env = cloneStringMap(c.Env)
	out.Headers = cloneStringMap(c.Headers)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ConfigPatch is a partial update applied to an existing server config.
// Nil fields are left untouched.
type ConfigPatch struct {
	Command   *string            `json:"command,omitempty"`
	Args      *[]string          `json:"args,omitempty"`
	Env       *map[string]string `json:"env,omitempty"`
	URL       *string            `json:"url,omitempty"`
	Headers   *map[string]string `json:"headers,omitempty"`
	Enabled   *bool              `json:"enabled,omitempty"`
	AutoStart *bool              `json:"autoStart,omitempty"`
}

// TouchesConnection reports whether applying the patch changes fields a
// live connection depends on, which forces a restart while connected.
func (p ConfigPatch) TouchesConnection() bool {
	return p.Command != nil || p.Args != nil || p.Env != nil || p.URL != nil || p.Headers != nil
}

// Apply returns cfg with the patch applied.
func (p ConfigPatch) Apply(cfg ServerConfig) ServerConfig {
	out := cfg.Clone()
	if p.Command != nil {
		out.Command = *p.Command
	}
	if p.Args != nil {
		out.Args = append([]string(nil), (*p.Args)...)
	}
	if p.Env != nil {
		out.Env = cloneStringMap(*p.Env)
	}
	if p.URL != nil {
		out.URL = *p.URL
	}
	if p.Headers != nil {
		out.Headers = cloneStringMap(*p.Headers)
	}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.AutoStart != nil {
		out.AutoStart = *p.AutoStart
	}
	return out
}

// Tool is a callable capability exposed by a connected server.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
}

// Resource is a readable capability exposed by a connected server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// Prompt is a prompt template exposed by a connected server.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Capabilities is what a server advertises once connected. Cleared on
// stop and on error so stale data never leaks into statistics.
type Capabilities struct {
	Tools     []Tool     `json:"tools"`
	Resources []Resource `json:"resources"`
	Prompts   []Prompt   `json:"prompts"`
}

// ServerRuntime is the live view of a configured server.
type ServerRuntime struct {
	ServerConfig

	Status        ServerStatus `json:"status"`
	LastError     string       `json:"lastError,omitempty"`
	ErrorKind     ErrorKind    `json:"errorKind,omitempty"`
	LastConnected time.Time    `json:"lastConnected,omitzero"`
	Capabilities  Capabilities `json:"capabilities"`
}

// TestResult is the outcome of a one-shot connection probe. It never
// changes lifecycle state.
type TestResult struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// ToolInvocation records a tool call observed in a chat session.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Server    string          `json:"server,omitempty"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
}

// ToolResult is the completion record for an invocation. An invocation
// without a matching result is pending.
type ToolResult struct {
	InvocationID string          `json:"invocationId"`
	Content      json.RawMessage `json:"content,omitempty"`
	IsError      bool            `json:"isError"`
	Duration     time.Duration   `json:"duration,omitempty"`
	CompletedAt  time.Time       `json:"completedAt"`
}

// Statistics is a derived snapshot over the current registry state.
type Statistics struct {
	TotalServers     int     `json:"totalServers"`
	ConnectedServers int     `json:"connectedServers"`
	ErrorServers     int     `json:"errorServers"`
	DisabledServers  int     `json:"disabledServers"`
	TotalTools       int     `json:"totalTools"`
	TotalResources   int     `json:"totalResources"`
	TotalPrompts     int     `json:"totalPrompts"`
	TotalInvocations int     `json:"totalInvocations"`
	HealthPercent    float64 `json:"healthPercent"`
}

// ValidationResult is returned by the standalone config validator used
// for interactively added servers.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Registry timing defaults. All are injectable for tests.
const (
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultReconnectDelay      = 5 * time.Second
	DefaultRestartSettleDelay  = 500 * time.Millisecond
	DefaultProbeTimeout        = 5 * time.Second
)
