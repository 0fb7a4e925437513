package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/base"
	"github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

// defaultSearchLimit caps UTCP search hits when the caller sets no limit.
const defaultSearchLimit = 10

// UTCPClient is the slice of a go-utcp client this package needs. The
// concrete utcp.UtcpClientInterface satisfies it.
type UTCPClient interface {
	RegisterToolProvider(ctx context.Context, prov base.Provider) ([]tools.Tool, error)
	CallTool(ctx context.Context, toolName string, args map[string]any) (any, error)
	SearchTools(query string, limit int) ([]tools.Tool, error)
}

// FromUTCP registers a go-utcp provider on the client and exposes the tools
// it advertises as one group. Tool names stay exactly as the client
// registered them, so every Invoke routes back through client.CallTool
// unchanged; the free-text input travels as the "input" argument.
func FromUTCP(ctx context.Context, client UTCPClient, prov base.Provider, groupID, description string) (reagent.Group, error) {
	if client == nil {
		return reagent.Group{}, errors.New("utcp client is nil")
	}
	if strings.TrimSpace(groupID) == "" {
		return reagent.Group{}, errors.New("utcp group id is empty")
	}

	registered, err := client.RegisterToolProvider(ctx, prov)
	if err != nil {
		return reagent.Group{}, fmt.Errorf("register utcp provider: %w", err)
	}
	if len(registered) == 0 {
		return reagent.Group{}, fmt.Errorf("utcp provider for %s advertises no tools", groupID)
	}

	group := reagent.Group{ID: groupID, Description: description}
	if group.Description == "" {
		group.Description = utcpGroupDescription(registered)
	}
	for _, t := range registered {
		group.Tools = append(group.Tools, utcpTool(client, t))
	}
	return group, nil
}

func utcpTool(client UTCPClient, t tools.Tool) reagent.Tool {
	name := t.Name
	return reagent.NewTool(name, t.Description, func(ctx context.Context, input string) (string, error) {
		result, err := client.CallTool(ctx, name, map[string]any{"input": input})
		if err != nil {
			return "", err
		}
		return stringifyResult(result), nil
	})
}

// utcpGroupDescription assembles index text for providers that ship none of
// their own.
func utcpGroupDescription(registered []tools.Tool) string {
	parts := make([]string, 0, len(registered))
	for _, t := range registered {
		if t.Description == "" {
			parts = append(parts, t.Name)
			continue
		}
		parts = append(parts, t.Name+": "+t.Description)
	}
	return strings.Join(parts, "; ")
}

func stringifyResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return fmt.Sprint(v)
	}
}

// UTCPRetriever ranks tools with the client's own search instead of the local
// vector index. Hits are mapped back through the catalog so only registered
// tools reach the prompt, in the order the client returned them.
type UTCPRetriever struct {
	Client  UTCPClient
	Catalog *reagent.Catalog

	// Limit caps search hits per query. Zero means defaultSearchLimit.
	Limit int
}

// Tools implements reagent.ToolRetriever.
func (r *UTCPRetriever) Tools(_ context.Context, query string) ([]reagent.Tool, error) {
	if r.Client == nil || r.Catalog == nil {
		return nil, errors.New("utcp retriever needs a client and a catalog")
	}
	limit := r.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := r.Client.SearchTools(query, limit)
	if err != nil {
		return nil, fmt.Errorf("utcp tool search: %w", err)
	}

	seen := make(map[string]struct{}, len(hits))
	var selected []reagent.Tool
	for _, hit := range hits {
		if _, dup := seen[hit.Name]; dup {
			continue
		}
		seen[hit.Name] = struct{}{}
		tool, ok := r.Catalog.Lookup(hit.Name)
		if !ok {
			continue
		}
		selected = append(selected, tool)
	}
	return selected, nil
}

var _ reagent.ToolRetriever = (*UTCPRetriever)(nil)
