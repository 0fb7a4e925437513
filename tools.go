package reagent

import (
	"context"
	"fmt"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval"
)

// ToolSpec describes a callable tool: a globally unique name plus the
// natural-language description the model sees in its prompt.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tool is a single callable capability. Invoke takes one free-text input and
// returns one free-text output; transports, schemas, and protocols all stay
// behind this surface.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, input string) (string, error)
}

// Group bundles related tools behind one description. The group is the unit
// retrieval ranks; its ID doubles as the document ID in the index. The order
// of Tools is significant: it is preserved into the rendered prompt.
type Group struct {
	ID          string
	Description string
	Tools       []Tool
}

// Doc returns the retrieval document for the group.
func (g Group) Doc() retrieval.Doc {
	return retrieval.Doc{GroupID: g.ID, Content: g.Description}
}

// NewTool wraps fn as a Tool with the given name and description.
func NewTool(name, description string, fn func(ctx context.Context, input string) (string, error)) Tool {
	return &funcTool{spec: ToolSpec{Name: name, Description: description}, fn: fn}
}

type funcTool struct {
	spec ToolSpec
	fn   func(ctx context.Context, input string) (string, error)
}

func (t *funcTool) Spec() ToolSpec { return t.spec }

func (t *funcTool) Invoke(ctx context.Context, input string) (string, error) {
	if t.fn == nil {
		return "", fmt.Errorf("tool %s has no implementation", t.spec.Name)
	}
	return t.fn(ctx, input)
}
