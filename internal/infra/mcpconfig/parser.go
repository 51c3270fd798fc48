package mcpconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

// Document is the on-disk configuration shape shared by every scope:
//
//	{ "mcpServers": { "<name>": { "command": ..., "url": ..., ... } } }
type Document struct {
	MCPServers map[string]RawServer `json:"mcpServers"`
}

// RawServer is one entry of a configuration document before
// normalization and validation.
type RawServer struct {
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Disabled  bool              `json:"disabled,omitempty"`
	AutoStart bool              `json:"autoStart,omitempty"`
}

// Parser turns raw configuration documents into validated server
// configs. Entries that fail structural validation are dropped with a
// warning; a malformed document as a whole is an error.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("mcpconfig")}
}

// Parse decodes data as a configuration document read from the given
// scope. Invalid entries are skipped, valid ones returned sorted by
// name so output is deterministic.
func (p *Parser) Parse(data []byte, scope domain.Scope) ([]domain.ServerConfig, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config document: %w", err)
	}
	if len(doc.MCPServers) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(doc.MCPServers))
	for name := range doc.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]domain.ServerConfig, 0, len(names))
	for _, name := range names {
		cfg := normalizeServer(name, doc.MCPServers[name], scope)
		if result := Validate(cfg); !result.Valid {
			p.logger.Warn("dropping invalid server entry",
				zap.String("server", name),
				zap.String("scope", string(scope)),
				zap.Strings("reasons", result.Errors),
			)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func normalizeServer(name string, raw RawServer, scope domain.Scope) domain.ServerConfig {
	cfg := domain.ServerConfig{
		Name:      strings.TrimSpace(name),
		Command:   strings.TrimSpace(raw.Command),
		Args:      append([]string(nil), raw.Args...),
		Env:       cleanStringMap(raw.Env),
		URL:       strings.TrimSpace(raw.URL),
		Headers:   cleanStringMap(raw.Headers),
		Scope:     scope,
		Enabled:   !raw.Disabled,
		AutoStart: raw.AutoStart,
	}
	cfg.Transport = InferTransport(cfg)
	if cfg.Transport != domain.TransportStdio {
		cfg.Command = ""
		cfg.Args = nil
		cfg.Env = nil
	} else {
		cfg.URL = ""
		cfg.Headers = nil
	}
	return cfg
}

// InferTransport decides the transport kind from the populated fields:
// a url means http, or sse when the URL path suggests an event stream;
// everything else is stdio.
func InferTransport(cfg domain.ServerConfig) domain.TransportKind {
	if cfg.URL == "" {
		return domain.TransportStdio
	}
	if looksLikeEventStream(cfg.URL) {
		return domain.TransportSSE
	}
	return domain.TransportHTTP
}

func looksLikeEventStream(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(strings.Trim(parsed.Path, "/"))
	for _, segment := range strings.Split(path, "/") {
		if segment == "sse" || segment == "events" || segment == "event-stream" {
			return true
		}
	}
	return false
}

func cleanStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(m))
	for key, value := range m {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		cleaned[key] = value
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// EncodeDocument renders configs from a single scope back into the
// on-disk document shape for the persistence collaborator.
func EncodeDocument(configs []domain.ServerConfig) ([]byte, error) {
	doc := Document{MCPServers: make(map[string]RawServer, len(configs))}
	for _, cfg := range configs {
		doc.MCPServers[cfg.Name] = RawServer{
			Command:   cfg.Command,
			Args:      append([]string(nil), cfg.Args...),
			Env:       cloneForEncode(cfg.Env),
			URL:       cfg.URL,
			Headers:   cloneForEncode(cfg.Headers),
			Disabled:  !cfg.Enabled,
			AutoStart: cfg.AutoStart,
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func cloneForEncode(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
