package mcpconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

// Source is one configuration document location.
type Source struct {
	Scope domain.Scope
	Path  string
}

// DefaultSources returns the layered config locations for a working
// directory, in reading order (user first, managed last). Project scope
// has two candidate files; the first that exists is used, `.mcp.json`
// preferred.
func DefaultSources(workingDir string) []Source {
	var sources []Source
	if home, err := os.UserHomeDir(); err == nil {
		sources = append(sources, Source{
			Scope: domain.ScopeUser,
			Path:  filepath.Join(home, ".claude", "claude_desktop_config.json"),
		})
	}
	if workingDir != "" {
		sources = append(sources,
			Source{Scope: domain.ScopeProject, Path: filepath.Join(workingDir, ".mcp.json")},
			Source{Scope: domain.ScopeProject, Path: filepath.Join(workingDir, ".claude", "mcp.json")},
		)
	}
	sources = append(sources, Source{
		Scope: domain.ScopeManaged,
		Path:  filepath.Join("/etc", "claude", "managed_mcp.json"),
	})
	return sources
}

// Store reads and writes raw configuration documents. The manager only
// ever hands it fully serialized documents; persistence details stay
// out of the core.
type Store interface {
	Read(ctx context.Context, source Source) ([]byte, error)
	Write(ctx context.Context, source Source, data []byte) error
}

// FileStore is the OS-file implementation of Store. A missing file
// reads as an empty document.
type FileStore struct {
	logger *zap.Logger
}

func NewFileStore(logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{logger: logger.Named("config-store")}
}

func (s *FileStore) Read(ctx context.Context, source Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", source.Path, err)
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, source Source, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(source.Path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(source.Path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", source.Path, err)
	}
	return nil
}

// Loader reads every source, parses each document under its scope, and
// merges the results into one config set.
type Loader struct {
	store   Store
	parser  *Parser
	sources []Source
	logger  *zap.Logger
}

func NewLoader(store Store, parser *Parser, sources []Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:   store,
		parser:  parser,
		sources: sources,
		logger:  logger.Named("config-loader"),
	}
}

// Sources returns the configured source list in reading order.
func (l *Loader) Sources() []Source {
	return append([]Source(nil), l.sources...)
}

// LoadMerged reads all scopes in reading order and returns the merged
// config set. A document that fails to parse is skipped with a warning
// so one broken file does not take down the whole registry.
func (l *Loader) LoadMerged(ctx context.Context) ([]domain.ServerConfig, error) {
	var lists [][]domain.ServerConfig
	for _, source := range l.sources {
		data, err := l.store.Read(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			l.logger.Warn("config source unreadable",
				zap.String("path", source.Path),
				zap.String("scope", string(source.Scope)),
				zap.Error(err),
			)
			continue
		}
		configs, err := l.parser.Parse(data, source.Scope)
		if err != nil {
			l.logger.Warn("config source malformed",
				zap.String("path", source.Path),
				zap.String("scope", string(source.Scope)),
				zap.Error(err),
			)
			continue
		}
		lists = append(lists, configs)
	}
	return Merge(lists...), ctx.Err()
}

// SourceFor returns the document location configs of the given scope
// are written back to. The first source of the scope wins, matching
// the read preference.
func (l *Loader) SourceFor(scope domain.Scope) (Source, bool) {
	for _, source := range l.sources {
		if source.Scope == scope {
			return source, true
		}
	}
	return Source{}, false
}
