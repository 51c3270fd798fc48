package transport

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mcpdeck/internal/domain"
)

// FetchCapabilities lists tools, resources and prompts over the live
// session. Servers are not required to implement every list method, so
// a single unsupported list degrades to an empty set; the fetch fails
// only when every list fails, which points at a dead connection rather
// than a missing capability.
func (t *MCPTransport) FetchCapabilities(ctx context.Context, cfg domain.ServerConfig, h domain.Handle) (domain.Capabilities, error) {
	session, err := sessionFrom(h)
	if err != nil {
		return domain.Capabilities{}, err
	}

	caps := domain.Capabilities{
		Tools:     []domain.Tool{},
		Resources: []domain.Resource{},
		Prompts:   []domain.Prompt{},
	}

	var firstErr error
	failures := 0

	tools, err := listTools(ctx, session)
	if err != nil {
		failures++
		firstErr = err
		t.logger.Debug("list tools failed", zap.String("server", cfg.Name), zap.Error(err))
	} else {
		caps.Tools = tools
	}

	resources, err := listResources(ctx, session)
	if err != nil {
		failures++
		if firstErr == nil {
			firstErr = err
		}
		t.logger.Debug("list resources failed", zap.String("server", cfg.Name), zap.Error(err))
	} else {
		caps.Resources = resources
	}

	prompts, err := listPrompts(ctx, session)
	if err != nil {
		failures++
		if firstErr == nil {
			firstErr = err
		}
		t.logger.Debug("list prompts failed", zap.String("server", cfg.Name), zap.Error(err))
	} else {
		caps.Prompts = prompts
	}

	if failures == 3 {
		return domain.Capabilities{}, firstErr
	}
	return caps, nil
}

func listTools(ctx context.Context, session *mcp.ClientSession) ([]domain.Tool, error) {
	out := []domain.Tool{}
	var cursor string
	for {
		res, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, tool := range res.Tools {
			out = append(out, domain.Tool{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: toSchema(tool.InputSchema),
			})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func listResources(ctx context.Context, session *mcp.ClientSession) ([]domain.Resource, error) {
	out := []domain.Resource{}
	var cursor string
	for {
		res, err := session.ListResources(ctx, &mcp.ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, resource := range res.Resources {
			out = append(out, domain.Resource{
				URI:         resource.URI,
				Name:        resource.Name,
				Description: resource.Description,
				MIMEType:    resource.MIMEType,
			})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func listPrompts(ctx context.Context, session *mcp.ClientSession) ([]domain.Prompt, error) {
	out := []domain.Prompt{}
	var cursor string
	for {
		res, err := session.ListPrompts(ctx, &mcp.ListPromptsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, prompt := range res.Prompts {
			mapped := domain.Prompt{
				Name:        prompt.Name,
				Description: prompt.Description,
			}
			for _, arg := range prompt.Arguments {
				mapped.Arguments = append(mapped.Arguments, domain.PromptArgument{
					Name:        arg.Name,
					Description: arg.Description,
					Required:    arg.Required,
				})
			}
			out = append(out, mapped)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

// toSchema converts the SDK's untyped inputSchema (any, typically a
// map decoded from the wire) into the domain's *jsonschema.Schema.
func toSchema(v any) *jsonschema.Schema {
	if v == nil {
		return nil
	}
	if s, ok := v.(*jsonschema.Schema); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}
