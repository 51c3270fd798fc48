package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcpdeck/internal/domain"
	"mcpdeck/internal/infra/telemetry"
)

// Listener receives the full runtime snapshot after every mutation.
// Delivery is synchronous: a listener registered before a mutating call
// observes the change before that call returns.
type Listener func([]domain.ServerRuntime)

// Options configures a Registry. Zero durations fall back to the
// domain defaults.
type Options struct {
	Transport domain.Transport
	Logger    *zap.Logger
	Metrics   domain.Metrics

	HealthCheckInterval time.Duration
	ReconnectDelay      time.Duration
	RestartSettleDelay  time.Duration
	ProbeTimeout        time.Duration
}

// Registry owns every managed server and is the single writer of their
// lifecycle state. Status guards make overlapping start/stop calls for
// the same name idempotent no-ops; operations on different names are
// independent.
type Registry struct {
	transport      domain.Transport
	logger         *zap.Logger
	metrics        domain.Metrics
	healthInterval time.Duration
	reconnectDelay time.Duration
	settleDelay    time.Duration
	probeTimeout   time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]Listener
	nextSub int
}

// entry is the runtime record of one server. Its epoch increments on
// every stop, disable, removal or reinitialization; timer callbacks and
// in-flight starts compare epochs before committing so an action staged
// before a cancellation becomes a no-op.
type entry struct {
	config        domain.ServerConfig
	status        domain.ServerStatus
	lastError     string
	errorKind     domain.ErrorKind
	lastConnected time.Time
	caps          domain.Capabilities
	handle        domain.Handle
	timers        timerSet
	epoch         uint64
}

func New(opts Options) *Registry {
	if opts.Transport == nil {
		panic("registry.New requires a transport")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	r := &Registry{
		transport:      opts.Transport,
		logger:         logger.Named("registry"),
		metrics:        metrics,
		healthInterval: opts.HealthCheckInterval,
		reconnectDelay: opts.ReconnectDelay,
		settleDelay:    opts.RestartSettleDelay,
		probeTimeout:   opts.ProbeTimeout,
		entries:        make(map[string]*entry),
		subs:           make(map[int]Listener),
	}
	if r.healthInterval <= 0 {
		r.healthInterval = domain.DefaultHealthCheckInterval
	}
	if r.reconnectDelay <= 0 {
		r.reconnectDelay = domain.DefaultReconnectDelay
	}
	if r.settleDelay <= 0 {
		r.settleDelay = domain.DefaultRestartSettleDelay
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = domain.DefaultProbeTimeout
	}
	return r
}

type noopMetrics struct{}

func (noopMetrics) ObserveServerStart(string, error) {}
func (noopMetrics) ObserveServerStop(string)         {}
func (noopMetrics) ObserveHealthCheck(string, bool)  {}
func (noopMetrics) ObserveReconnect(string)          {}
func (noopMetrics) SetConnectedServers(int)          {}

// Initialize replaces the whole registry with the given configs.
// Existing servers are torn down first. Duplicate names in the input
// keep the later entry; callers are expected to have merged by scope
// already. Servers with enabled+autoStart are started without blocking
// the call; their failures surface via the subscription stream.
func (r *Registry) Initialize(ctx context.Context, configs []domain.ServerConfig) error {
	r.mu.Lock()
	var stops []stopWork
	for name, e := range r.entries {
		e.epoch++
		e.timers.cancelAll()
		if e.handle != nil {
			stops = append(stops, stopWork{config: e.config.Clone(), handle: e.handle})
		}
		delete(r.entries, name)
	}

	var autoStart []string
	for _, cfg := range configs {
		e := newEntry(cfg)
		r.entries[cfg.Name] = e
		if cfg.Enabled && cfg.AutoStart {
			autoStart = append(autoStart, cfg.Name)
		}
	}
	r.mu.Unlock()

	for _, w := range stops {
		r.stopTransport(ctx, w.config, w.handle)
	}
	r.notify()

	for _, name := range autoStart {
		go func(name string) {
			_ = r.Start(context.Background(), name)
		}(name)
	}
	return ctx.Err()
}

type stopWork struct {
	config domain.ServerConfig
	handle domain.Handle
}

func newEntry(cfg domain.ServerConfig) *entry {
	status := domain.StatusStopped
	if !cfg.Enabled {
		status = domain.StatusDisabled
	}
	return &entry{config: cfg.Clone(), status: status}
}

// Add registers a new server. The name must be free.
func (r *Registry) Add(ctx context.Context, cfg domain.ServerConfig) error {
	r.mu.Lock()
	if _, exists := r.entries[cfg.Name]; exists {
		r.mu.Unlock()
		return domain.E(domain.CodeAlreadyExists, "registry.Add", "server "+cfg.Name+" already exists")
	}
	r.entries[cfg.Name] = newEntry(cfg)
	start := cfg.Enabled && cfg.AutoStart
	r.mu.Unlock()

	r.notify()
	if start {
		go func() {
			_ = r.Start(context.Background(), cfg.Name)
		}()
	}
	return nil
}

// Remove stops a server and deletes it. Removing an absent name is a
// no-op, not an error.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	e.epoch++
	e.timers.cancelAll()
	cfg := e.config.Clone()
	handle := e.handle
	delete(r.entries, name)
	r.mu.Unlock()

	if handle != nil {
		r.stopTransport(ctx, cfg, handle)
		r.metrics.ObserveServerStop(name)
	}
	r.notify()
	return nil
}

// Update applies a partial config change. Changing connection-relevant
// fields while connected restarts the server; toggling enabled moves
// between disabled and stopped, stopping first when necessary.
func (r *Registry) Update(ctx context.Context, name string, patch domain.ConfigPatch) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return domain.E(domain.CodeNotFound, "registry.Update", "server "+name+" not found")
	}

	wasDisabled := e.status == domain.StatusDisabled
	wasConnected := e.status == domain.StatusConnected
	e.config = patch.Apply(e.config)
	cfg := e.config.Clone()

	disabling := !wasDisabled && !cfg.Enabled
	enabling := wasDisabled && cfg.Enabled
	restart := !disabling && wasConnected && patch.TouchesConnection()
	if enabling {
		e.status = domain.StatusStopped
		e.lastError = ""
		e.errorKind = ""
	}
	r.mu.Unlock()

	if disabling {
		r.stopEntry(ctx, name, domain.StatusDisabled)
	}
	r.notify()

	if restart {
		r.stopEntry(ctx, name, domain.StatusStopped)
		r.notify()
		go func() {
			_ = r.Start(context.Background(), name)
		}()
	}
	if enabling && cfg.AutoStart {
		go func() {
			_ = r.Start(context.Background(), name)
		}()
	}
	return nil
}

// Start moves a stopped server to connecting and brings up its
// transport. Starting an absent server fails with NOT_FOUND, a disabled
// one with DISABLED; a server already connecting or connected is a
// successful no-op. Transport failures are recorded on the entry, not
// returned: the caller sees them through the subscription stream.
func (r *Registry) Start(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return domain.E(domain.CodeNotFound, "registry.Start", "server "+name+" not found")
	}
	switch e.status {
	case domain.StatusDisabled:
		r.mu.Unlock()
		return domain.E(domain.CodeDisabled, "registry.Start", "server "+name+" is disabled")
	case domain.StatusConnecting, domain.StatusConnected:
		r.mu.Unlock()
		return nil
	}
	e.timers.cancelReconnect()
	e.status = domain.StatusConnecting
	e.lastError = ""
	e.errorKind = ""
	epoch := e.epoch
	cfg := e.config.Clone()
	r.mu.Unlock()

	r.logger.Info("server start attempt",
		telemetry.EventField(telemetry.EventStartAttempt),
		telemetry.ServerField(name),
	)
	r.notify()

	started := time.Now()
	handle, err := r.transport.Start(ctx, cfg)
	if err != nil {
		r.recordStartFailure(name, epoch, started, err)
		return nil
	}

	caps, err := r.transport.FetchCapabilities(ctx, cfg, handle)
	if err != nil {
		r.stopTransport(ctx, cfg, handle)
		r.recordStartFailure(name, epoch, started, err)
		return nil
	}

	r.mu.Lock()
	e, ok = r.entries[name]
	if !ok || e.epoch != epoch || e.status != domain.StatusConnecting {
		// Stopped, removed or reinitialized while the start was in
		// flight; the connection we just opened has no owner.
		r.mu.Unlock()
		r.stopTransport(ctx, cfg, handle)
		return nil
	}
	e.status = domain.StatusConnected
	e.caps = caps
	e.handle = handle
	e.lastConnected = time.Now()
	r.scheduleHealthCheck(e, name)
	r.mu.Unlock()

	r.metrics.ObserveServerStart(name, nil)
	r.logger.Info("server connected",
		telemetry.EventField(telemetry.EventStartSuccess),
		telemetry.ServerField(name),
		telemetry.DurationField(time.Since(started)),
	)
	r.notify()
	return nil
}

func (r *Registry) recordStartFailure(name string, epoch uint64, started time.Time, cause error) {
	kind := domain.ClassifyError(cause)

	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.epoch != epoch || e.status != domain.StatusConnecting {
		r.mu.Unlock()
		return
	}
	e.status = domain.StatusError
	e.lastError = cause.Error()
	e.errorKind = kind
	e.caps = domain.Capabilities{}
	e.handle = nil
	if kind.Transient() {
		r.scheduleReconnect(e, name)
	}
	r.mu.Unlock()

	r.metrics.ObserveServerStart(name, cause)
	r.logger.Warn("server start failed",
		telemetry.EventField(telemetry.EventStartFailure),
		telemetry.ServerField(name),
		telemetry.ErrorKindField(string(kind)),
		telemetry.DurationField(time.Since(started)),
		zap.Error(cause),
	)
	r.notify()
}

// Stop cancels the server's timers, tears down its transport and moves
// it to stopped. Stopping an absent, stopped or disabled server is a
// no-op.
func (r *Registry) Stop(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.status == domain.StatusStopped || e.status == domain.StatusDisabled {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.stopEntry(ctx, name, domain.StatusStopped)
	r.notify()
	return nil
}

// stopEntry performs the shared teardown of stop/disable paths: bump
// the epoch, cancel timers, clear capabilities and handle, stop the
// transport, and settle on finalStatus.
func (r *Registry) stopEntry(ctx context.Context, name string, finalStatus domain.ServerStatus) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.epoch++
	e.timers.cancelAll()
	cfg := e.config.Clone()
	handle := e.handle
	e.handle = nil
	e.caps = domain.Capabilities{}
	e.status = finalStatus
	if finalStatus != domain.StatusError {
		e.lastError = ""
		e.errorKind = ""
	}
	r.mu.Unlock()

	if handle != nil {
		r.stopTransport(ctx, cfg, handle)
		r.metrics.ObserveServerStop(name)
		r.logger.Info("server stopped",
			telemetry.EventField(telemetry.EventStopSuccess),
			telemetry.ServerField(name),
			telemetry.StatusField(string(finalStatus)),
		)
	}
}

func (r *Registry) stopTransport(ctx context.Context, cfg domain.ServerConfig, handle domain.Handle) {
	if err := r.transport.Stop(ctx, cfg, handle); err != nil {
		r.logger.Warn("transport stop failed",
			telemetry.EventField(telemetry.EventStopFailure),
			telemetry.ServerField(cfg.Name),
			zap.Error(err),
		)
	}
}

// Restart stops the server, waits for the settle delay so the transport
// can release exclusive resources (ports, lock files), then starts it
// again.
func (r *Registry) Restart(ctx context.Context, name string) error {
	if err := r.Stop(ctx, name); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.settleDelay):
	}
	return r.Start(ctx, name)
}

// TestConnection runs a one-shot health probe outside the recurring
// schedule. It never mutates lifecycle state: a connected server is
// probed over its live handle, any other server over a temporary
// connection that is torn down afterwards.
func (r *Registry) TestConnection(ctx context.Context, name string) (domain.TestResult, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return domain.TestResult{}, domain.E(domain.CodeNotFound, "registry.TestConnection", "server "+name+" not found")
	}
	cfg := e.config.Clone()
	handle := e.handle
	r.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	started := time.Now()
	var err error
	if handle != nil {
		err = r.transport.HealthCheck(probeCtx, cfg, handle)
	} else {
		var tmp domain.Handle
		tmp, err = r.transport.Start(probeCtx, cfg)
		if err == nil {
			err = r.transport.HealthCheck(probeCtx, cfg, tmp)
			r.stopTransport(ctx, cfg, tmp)
		}
	}
	latency := time.Since(started)

	if err != nil {
		return domain.TestResult{Healthy: false, Latency: latency, Error: err.Error()}, nil
	}
	return domain.TestResult{Healthy: true, Latency: latency}, nil
}

// scheduleHealthCheck arms the recurring health timer. Caller holds r.mu.
func (r *Registry) scheduleHealthCheck(e *entry, name string) {
	e.timers.cancelHealth()
	epoch := e.epoch
	e.timers.health = time.AfterFunc(r.healthInterval, func() {
		r.runHealthCheck(name, epoch)
	})
}

func (r *Registry) runHealthCheck(name string, epoch uint64) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.epoch != epoch || e.status != domain.StatusConnected {
		r.mu.Unlock()
		return
	}
	cfg := e.config.Clone()
	handle := e.handle
	r.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(context.Background(), r.probeTimeout)
	err := r.transport.HealthCheck(probeCtx, cfg, handle)
	cancel()

	if err == nil {
		r.metrics.ObserveHealthCheck(name, true)
		r.mu.Lock()
		e, ok = r.entries[name]
		if ok && e.epoch == epoch && e.status == domain.StatusConnected {
			r.scheduleHealthCheck(e, name)
		}
		r.mu.Unlock()
		return
	}

	r.metrics.ObserveHealthCheck(name, false)
	kind := domain.ErrKindConnectionFailed
	if domain.ClassifyError(err) == domain.ErrKindTimeout {
		kind = domain.ErrKindTimeout
	}

	r.mu.Lock()
	e, ok = r.entries[name]
	if !ok || e.epoch != epoch || e.status != domain.StatusConnected {
		r.mu.Unlock()
		return
	}
	e.status = domain.StatusError
	e.lastError = err.Error()
	e.errorKind = kind
	e.caps = domain.Capabilities{}
	deadHandle := e.handle
	e.handle = nil
	e.timers.cancelHealth()
	r.scheduleReconnect(e, name)
	r.mu.Unlock()

	if deadHandle != nil {
		r.stopTransport(context.Background(), cfg, deadHandle)
	}
	r.logger.Warn("health check failed",
		telemetry.EventField(telemetry.EventHealthCheckFailure),
		telemetry.ServerField(name),
		telemetry.ErrorKindField(string(kind)),
		zap.Error(err),
	)
	r.notify()
}

// scheduleReconnect arms a single reconnect timer, replacing any
// pending one. Caller holds r.mu.
func (r *Registry) scheduleReconnect(e *entry, name string) {
	e.timers.cancelReconnect()
	epoch := e.epoch
	e.timers.reconnect = time.AfterFunc(r.reconnectDelay, func() {
		r.runReconnect(name, epoch)
	})
	r.logger.Info("reconnect scheduled",
		telemetry.EventField(telemetry.EventReconnectScheduled),
		telemetry.ServerField(name),
		telemetry.DurationField(r.reconnectDelay),
	)
}

func (r *Registry) runReconnect(name string, epoch uint64) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.epoch != epoch || e.status != domain.StatusError || !e.config.Enabled {
		r.mu.Unlock()
		return
	}
	e.timers.reconnect = nil
	e.status = domain.StatusStopped
	r.mu.Unlock()

	r.metrics.ObserveReconnect(name)
	r.logger.Info("reconnect attempt",
		telemetry.EventField(telemetry.EventReconnectAttempt),
		telemetry.ServerField(name),
	)
	_ = r.Start(context.Background(), name)
}

// Get returns a snapshot of one server.
func (r *Registry) Get(name string) (domain.ServerRuntime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return domain.ServerRuntime{}, false
	}
	return snapshotEntry(e), true
}

// List returns snapshots of every server, sorted by name.
func (r *Registry) List() []domain.ServerRuntime {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.ServerRuntime {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.ServerRuntime, 0, len(names))
	for _, name := range names {
		out = append(out, snapshotEntry(r.entries[name]))
	}
	return out
}

func snapshotEntry(e *entry) domain.ServerRuntime {
	return domain.ServerRuntime{
		ServerConfig:  e.config.Clone(),
		Status:        e.status,
		LastError:     e.lastError,
		ErrorKind:     e.errorKind,
		LastConnected: e.lastConnected,
		Capabilities: domain.Capabilities{
			Tools:     append([]domain.Tool(nil), e.caps.Tools...),
			Resources: append([]domain.Resource(nil), e.caps.Resources...),
			Prompts:   append([]domain.Prompt(nil), e.caps.Prompts...),
		},
	}
}

// Subscribe registers a listener and returns its unsubscribe func.
func (r *Registry) Subscribe(listener Listener) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Registry) notify() {
	r.mu.Lock()
	snapshot := r.snapshotLocked()
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, r.subs[id])
	}
	r.mu.Unlock()

	connected := 0
	for _, rt := range snapshot {
		if rt.Status == domain.StatusConnected {
			connected++
		}
	}
	r.metrics.SetConnectedServers(connected)

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Close tears down every server. Used on daemon shutdown.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		_ = r.Stop(ctx, name)
	}
}
