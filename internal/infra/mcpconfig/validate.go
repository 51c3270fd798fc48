package mcpconfig

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mcpdeck/internal/domain"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks a server config structurally. It is pure and is also
// exposed to the UI layer for interactive add/edit forms.
func Validate(cfg domain.ServerConfig) domain.ValidationResult {
	var errs []string

	if strings.TrimSpace(cfg.Name) == "" {
		errs = append(errs, "name is required")
	} else if !namePattern.MatchString(cfg.Name) {
		errs = append(errs, "name may only contain letters, digits, hyphens and underscores")
	}

	switch cfg.Transport {
	case domain.TransportStdio:
		if strings.TrimSpace(cfg.Command) == "" {
			errs = append(errs, "command is required for stdio transport")
		}
		if cfg.URL != "" {
			errs = append(errs, "url must be empty for stdio transport")
		}
	case domain.TransportHTTP, domain.TransportSSE:
		if strings.TrimSpace(cfg.URL) == "" {
			errs = append(errs, fmt.Sprintf("URL is required for %s transport", cfg.Transport))
		} else if reason := validateURL(cfg.URL); reason != "" {
			errs = append(errs, reason)
		}
		if cfg.Command != "" {
			errs = append(errs, fmt.Sprintf("command must be empty for %s transport", cfg.Transport))
		}
	default:
		errs = append(errs, "transport must be stdio, http or sse")
	}

	for key := range cfg.Headers {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "headers contain an empty header name")
		}
	}
	for key := range cfg.Env {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "env contains an empty variable name")
		}
	}

	return domain.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateURL(raw string) string {
	if strings.Contains(raw, " ") {
		return "url must be a valid http(s) URL"
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || parsed.Host == "" {
		return "url must be a valid http(s) URL"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Sprintf("url scheme %q is not supported", parsed.Scheme)
	}
	return ""
}
