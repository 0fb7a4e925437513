package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/base"
	"github.com/universal-tool-calling-protocol/go-utcp/src/providers/cli"
	"github.com/universal-tool-calling-protocol/go-utcp/src/repository"
	"github.com/universal-tool-calling-protocol/go-utcp/src/tools"
	"github.com/universal-tool-calling-protocol/go-utcp/src/transports"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

// ServeTool wraps a whole loop as one UTCP tool with an in-process handler.
// Callers pass "input", the loop runs to its final answer, and the answer
// comes back as the result.
func ServeTool(loop *reagent.Loop, name, description string) tools.Tool {
	return tools.Tool{
		Name:        name,
		Description: description,
		Provider: &base.BaseProvider{
			Name:         providerNameFor(name),
			ProviderType: base.ProviderCLI, // in-process handler, no remote transport
		},
		Inputs: tools.ToolInputOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"input": map[string]any{
					"type":        "string",
					"description": "The question for the agent.",
				},
			},
			Required: []string{"input"},
		},
		Outputs: tools.ToolInputOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"answer": map[string]any{"type": "string"},
			},
		},
		Handler: tools.ToolHandler(func(ctx context.Context, inputs map[string]interface{}) (any, error) {
			query, ok := inputs["input"].(string)
			if !ok || strings.TrimSpace(query) == "" {
				return nil, errors.New("missing or invalid 'input'")
			}
			if ctx == nil {
				ctx = context.Background()
			}
			return loop.Run(ctx, query)
		}),
	}
}

// RegisterLoop exposes loop as a UTCP tool on client, so other UTCP consumers
// can call the whole retrieval-gated agent as a single tool. It installs an
// in-process shim on the CLI transport that routes CallTool straight to the
// loop.
func RegisterLoop(ctx context.Context, client utcp.UtcpClientInterface, loop *reagent.Loop, name, description string) error {
	if client == nil {
		return errors.New("utcp client is nil")
	}
	if loop == nil {
		return errors.New("loop is nil")
	}

	tool := ServeTool(loop, name, description)
	provider := &cli.CliProvider{
		BaseProvider: base.BaseProvider{
			Name:         providerNameFor(name),
			ProviderType: base.ProviderCLI,
		},
	}

	transportsMap := client.GetTransports()
	if transportsMap == nil {
		return errors.New("utcp client transports map is nil")
	}
	shim, ok := transportsMap[string(base.ProviderCLI)].(*inProcessTransport)
	if !ok {
		shim = &inProcessTransport{inner: transportsMap[string(base.ProviderCLI)]}
		transportsMap[string(base.ProviderCLI)] = shim
	}
	shim.serve(provider.Name, tool)

	_, err := client.RegisterToolProvider(ctx, provider)
	return err
}

// providerNameFor derives the provider name from a dotted tool name.
func providerNameFor(name string) string {
	providerName := strings.TrimSpace(name)
	if parts := strings.Split(providerName, "."); len(parts) > 1 {
		providerName = parts[0]
	}
	return providerName
}

// inProcessTransport answers for locally served tools and forwards everything
// else to the transport it replaced.
type inProcessTransport struct {
	inner repository.ClientTransport
	tools map[string][]tools.Tool
}

func (t *inProcessTransport) serve(providerName string, served ...tools.Tool) {
	if t.tools == nil {
		t.tools = make(map[string][]tools.Tool)
	}
	t.tools[providerName] = append(t.tools[providerName], served...)
}

func (t *inProcessTransport) RegisterToolProvider(ctx context.Context, prov base.Provider) ([]tools.Tool, error) {
	if p, ok := prov.(*cli.CliProvider); ok {
		if list, ok := t.tools[p.Name]; ok {
			return list, nil
		}
	}
	if t.inner != nil {
		return t.inner.RegisterToolProvider(ctx, prov)
	}
	return nil, fmt.Errorf("no tools served for provider %T", prov)
}

func (t *inProcessTransport) DeregisterToolProvider(ctx context.Context, prov base.Provider) error {
	if p, ok := prov.(*cli.CliProvider); ok {
		if _, ok := t.tools[p.Name]; ok {
			delete(t.tools, p.Name)
			return nil
		}
	}
	if t.inner != nil {
		return t.inner.DeregisterToolProvider(ctx, prov)
	}
	return nil
}

func (t *inProcessTransport) CallTool(ctx context.Context, toolName string, args map[string]any, prov base.Provider, _ *string) (any, error) {
	if p, ok := prov.(*cli.CliProvider); ok {
		if list, ok := t.tools[p.Name]; ok {
			// Clients pass either the qualified or the bare tool name.
			for _, tool := range list {
				if tool.Name == toolName || strings.HasSuffix(tool.Name, "."+toolName) {
					if tool.Handler == nil {
						return nil, fmt.Errorf("tool %s has no handler", toolName)
					}
					return tool.Handler(ctx, args)
				}
			}
		}
		if t.inner != nil {
			return t.inner.CallTool(ctx, toolName, args, prov, nil)
		}
		return nil, fmt.Errorf("tool %s not served for provider %s", toolName, p.Name)
	}
	if t.inner != nil {
		return t.inner.CallTool(ctx, toolName, args, prov, nil)
	}
	return nil, fmt.Errorf("unsupported provider type %T", prov)
}

func (t *inProcessTransport) CallToolStream(ctx context.Context, toolName string, args map[string]any, prov base.Provider) (transports.StreamResult, error) {
	if p, ok := prov.(*cli.CliProvider); ok {
		if _, ok := t.tools[p.Name]; ok {
			return nil, fmt.Errorf("streaming not supported for tool %s", toolName)
		}
	}
	if t.inner != nil {
		return t.inner.CallToolStream(ctx, toolName, args, prov)
	}
	return nil, fmt.Errorf("unsupported provider type %T", prov)
}
