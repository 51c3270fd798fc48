package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

const (
	clientName    = "mcpdeck"
	clientVersion = "0.1.0"
)

// MCPTransport implements domain.Transport over the MCP go-sdk: stdio
// servers are spawned as subprocesses, http/sse servers are dialed as
// clients. The registry only ever sees the opaque handle.
type MCPTransport struct {
	logger *zap.Logger
}

func NewMCPTransport(logger *zap.Logger) *MCPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPTransport{logger: logger.Named("transport")}
}

// sessionHandle wraps a live client session as an opaque handle.
type sessionHandle struct {
	session *mcp.ClientSession
}

func (*sessionHandle) TransportHandle() {}

func (t *MCPTransport) Start(ctx context.Context, cfg domain.ServerConfig) (domain.Handle, error) {
	conn, err := t.buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, conn, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s server %s: %w", cfg.Transport, cfg.Name, err)
	}
	return &sessionHandle{session: session}, nil
}

func (t *MCPTransport) buildTransport(cfg domain.ServerConfig) (mcp.Transport, error) {
	switch cfg.Transport {
	case domain.TransportStdio:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, errors.New("command is required for stdio transport")
		}
		cmd := exec.Command(cfg.Command, cfg.Args...)
		cmd.Env = append(os.Environ(), formatEnv(cfg.Env)...)
		return &mcp.CommandTransport{Command: cmd}, nil

	case domain.TransportHTTP:
		client, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: client,
		}, nil

	case domain.TransportSSE:
		client, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		return &mcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: client,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport)
	}
}

func (t *MCPTransport) Stop(ctx context.Context, cfg domain.ServerConfig, h domain.Handle) error {
	session, err := sessionFrom(h)
	if err != nil {
		return err
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("close %s server %s: %w", cfg.Transport, cfg.Name, err)
	}
	return nil
}

func (t *MCPTransport) HealthCheck(ctx context.Context, cfg domain.ServerConfig, h domain.Handle) error {
	session, err := sessionFrom(h)
	if err != nil {
		return err
	}
	if err := session.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping %s: %w", cfg.Name, err)
	}
	return nil
}

func sessionFrom(h domain.Handle) (*mcp.ClientSession, error) {
	sh, ok := h.(*sessionHandle)
	if !ok || sh.session == nil {
		return nil, errors.New("handle does not belong to this transport")
	}
	return sh.session, nil
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func buildHTTPClient(cfg domain.ServerConfig) (*http.Client, error) {
	if len(cfg.Headers) == 0 {
		return http.DefaultClient, nil
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		name := http.CanonicalHeaderKey(strings.TrimSpace(key))
		if name == "" {
			return nil, errors.New("http headers contain empty key")
		}
		headers.Set(name, value)
	}

	return &http.Client{
		Transport: &headerRoundTripper{
			base:    http.DefaultTransport,
			headers: headers,
		},
	}, nil
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, values := range h.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return h.base.RoundTrip(req)
}
