package domain

import "context"

// Handle identifies a live transport connection. The registry never
// inspects it; only the transport that produced it can make sense of it.
type Handle interface {
	TransportHandle()
}

// Transport is the collaborator that actually reaches a server: it
// spawns the subprocess or opens the HTTP/SSE connection. All four
// operations may block, fail, or time out; the registry treats them as
// opaque suspension points.
type Transport interface {
	// Start brings up the connection for cfg and returns its handle.
	Start(ctx context.Context, cfg ServerConfig) (Handle, error)

	// Stop tears down a previously started connection. Stop of an
	// already-dead connection is not an error.
	Stop(ctx context.Context, cfg ServerConfig, h Handle) error

	// HealthCheck probes a started connection. nil means healthy.
	HealthCheck(ctx context.Context, cfg ServerConfig, h Handle) error

	// FetchCapabilities lists the tools, resources and prompts the
	// connected server advertises.
	FetchCapabilities(ctx context.Context, cfg ServerConfig, h Handle) (Capabilities, error)
}

// Metrics receives lifecycle observations. Implementations must be
// safe for concurrent use.
type Metrics interface {
	ObserveServerStart(server string, err error)
	ObserveServerStop(server string)
	ObserveHealthCheck(server string, healthy bool)
	ObserveReconnect(server string)
	SetConnectedServers(count int)
}
