package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcpdeck/internal/domain"
	"mcpdeck/internal/infra/mcpconfig"
	"mcpdeck/internal/infra/registry"
	"mcpdeck/internal/infra/telemetry"
)

// Manager is the single API surface the UI layer talks to. It composes
// the config loader and the lifecycle registry, persists config changes
// back through the store collaborator, and keeps the in-memory tool
// invocation log.
type Manager struct {
	loader   *mcpconfig.Loader
	store    mcpconfig.Store
	registry *registry.Registry
	logger   *zap.Logger

	mu          sync.Mutex
	invocations []domain.ToolInvocation
	results     map[string]domain.ToolResult
}

func New(loader *mcpconfig.Loader, store mcpconfig.Store, reg *registry.Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		loader:   loader,
		store:    store,
		registry: reg,
		logger:   logger.Named("manager"),
		results:  make(map[string]domain.ToolResult),
	}
}

// Reload reads every config scope, merges them and replaces the
// registry contents. Auto-start servers come up in the background;
// their failures surface through the subscription stream only.
func (m *Manager) Reload(ctx context.Context) error {
	configs, err := m.loader.LoadMerged(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("configuration loaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.Int("servers", len(configs)),
	)
	return m.registry.Initialize(ctx, configs)
}

// GetServers returns a snapshot of every managed server.
func (m *Manager) GetServers() []domain.ServerRuntime {
	return m.registry.List()
}

// GetServer returns a snapshot of one server.
func (m *Manager) GetServer(name string) (domain.ServerRuntime, bool) {
	return m.registry.Get(name)
}

// Validate checks a config without touching the registry. Exposed for
// interactive add/edit forms.
func (m *Manager) Validate(cfg domain.ServerConfig) domain.ValidationResult {
	cfg = withInferredTransport(cfg)
	return mcpconfig.Validate(cfg)
}

// AddServer validates and registers a new server, then writes the
// updated scope document back through the store.
func (m *Manager) AddServer(ctx context.Context, cfg domain.ServerConfig) error {
	cfg = withInferredTransport(cfg)
	if cfg.Scope == "" {
		cfg.Scope = domain.ScopeUser
	}
	if result := mcpconfig.Validate(cfg); !result.Valid {
		return domain.EInvalid("manager.AddServer", result.Errors)
	}
	if err := m.registry.Add(ctx, cfg); err != nil {
		return err
	}
	m.persistScope(ctx, cfg.Scope)
	return nil
}

// UpdateServer applies a partial config change and persists it.
func (m *Manager) UpdateServer(ctx context.Context, name string, patch domain.ConfigPatch) error {
	current, ok := m.registry.Get(name)
	if !ok {
		return domain.E(domain.CodeNotFound, "manager.UpdateServer", "server "+name+" not found")
	}
	updated := withInferredTransport(patch.Apply(current.ServerConfig))
	if result := mcpconfig.Validate(updated); !result.Valid {
		return domain.EInvalid("manager.UpdateServer", result.Errors)
	}
	if err := m.registry.Update(ctx, name, patch); err != nil {
		return err
	}
	m.persistScope(ctx, current.Scope)
	return nil
}

// RemoveServer stops and deletes a server, then persists its scope.
// Removing an absent name is a no-op.
func (m *Manager) RemoveServer(ctx context.Context, name string) error {
	current, ok := m.registry.Get(name)
	if !ok {
		return nil
	}
	if err := m.registry.Remove(ctx, name); err != nil {
		return err
	}
	m.persistScope(ctx, current.Scope)
	return nil
}

func (m *Manager) StartServer(ctx context.Context, name string) error {
	return m.registry.Start(ctx, name)
}

func (m *Manager) StopServer(ctx context.Context, name string) error {
	return m.registry.Stop(ctx, name)
}

func (m *Manager) RestartServer(ctx context.Context, name string) error {
	return m.registry.Restart(ctx, name)
}

// TestConnection runs a one-shot diagnostic probe.
func (m *Manager) TestConnection(ctx context.Context, name string) (domain.TestResult, error) {
	return m.registry.TestConnection(ctx, name)
}

// Subscribe registers a listener for registry snapshots; the returned
// func unsubscribes it.
func (m *Manager) Subscribe(listener registry.Listener) func() {
	return m.registry.Subscribe(listener)
}

// GetStatistics aggregates derived counts over the current state.
func (m *Manager) GetStatistics() domain.Statistics {
	m.mu.Lock()
	invocations := len(m.invocations)
	m.mu.Unlock()
	return Aggregate(m.registry.List(), invocations)
}

// RecordInvocation appends a tool invocation to the in-memory log and
// returns its id. Missing ids and timestamps are filled in.
func (m *Manager) RecordInvocation(inv domain.ToolInvocation) string {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.StartedAt.IsZero() {
		inv.StartedAt = time.Now()
	}
	m.mu.Lock()
	m.invocations = append(m.invocations, inv)
	m.mu.Unlock()
	return inv.ID
}

// RecordResult stores the completion record for an invocation.
func (m *Manager) RecordResult(res domain.ToolResult) {
	if res.CompletedAt.IsZero() {
		res.CompletedAt = time.Now()
	}
	m.mu.Lock()
	m.results[res.InvocationID] = res
	m.mu.Unlock()
}

// GetInvocations returns the invocation log in arrival order.
func (m *Manager) GetInvocations() []domain.ToolInvocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ToolInvocation(nil), m.invocations...)
}

// GetResult looks up the result for an invocation id. ok is false while
// the invocation is still pending.
func (m *Manager) GetResult(id string) (domain.ToolResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[id]
	return res, ok
}

// persistScope serializes every config of the scope and hands the
// document to the store. Persistence failures are logged, not
// returned: the registry mutation already happened and the next
// successful write heals the file.
func (m *Manager) persistScope(ctx context.Context, scope domain.Scope) {
	source, ok := m.loader.SourceFor(scope)
	if !ok {
		m.logger.Warn("no config source for scope", telemetry.ScopeField(string(scope)))
		return
	}

	var configs []domain.ServerConfig
	for _, server := range m.registry.List() {
		if server.Scope == scope {
			configs = append(configs, server.ServerConfig)
		}
	}

	data, err := mcpconfig.EncodeDocument(configs)
	if err != nil {
		m.logger.Warn("encode config document failed",
			telemetry.ScopeField(string(scope)),
			zap.Error(err),
		)
		return
	}
	if err := m.store.Write(ctx, source, data); err != nil {
		m.logger.Warn("config write-back failed",
			telemetry.ScopeField(string(scope)),
			zap.String("path", source.Path),
			zap.Error(err),
		)
	}
}

func withInferredTransport(cfg domain.ServerConfig) domain.ServerConfig {
	if cfg.Transport == "" {
		cfg.Transport = mcpconfig.InferTransport(cfg)
	}
	return cfg
}
