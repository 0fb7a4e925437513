package reagent

import (
	"context"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval"
)

// ToolRetriever selects the tool subset relevant to a query. It is the
// substitutable strategy behind prompt rendering: swapping semantic retrieval
// for a static list or keyword matching touches nothing else in the runtime.
type ToolRetriever interface {
	Tools(ctx context.Context, query string) ([]Tool, error)
}

// IndexRetriever ranks catalog groups through a retrieval index and flattens
// the winners into one tool list. Ordering is retrieval-rank-major, then the
// group's declared tool order; duplicate groups and duplicate names are
// dropped. The resulting order is surfaced verbatim in the prompt, so it
// decides which names the model sees first.
type IndexRetriever struct {
	Catalog *Catalog
	Index   *retrieval.Index

	// Limit caps the ranked groups per query. Zero uses the index default.
	Limit int
}

// Tools implements ToolRetriever.
func (r *IndexRetriever) Tools(ctx context.Context, query string) ([]Tool, error) {
	ids, err := r.Index.Query(ctx, query, r.Limit)
	if err != nil {
		return nil, err
	}

	seenGroups := make(map[string]struct{}, len(ids))
	seenNames := make(map[string]struct{})
	var tools []Tool
	for _, id := range ids {
		if _, dup := seenGroups[id]; dup {
			continue
		}
		seenGroups[id] = struct{}{}
		// Graph expansion can surface ids the catalog no longer carries.
		group, ok := r.Catalog.Group(id)
		if !ok {
			continue
		}
		for _, tool := range group.Tools {
			name := tool.Spec().Name
			if _, dup := seenNames[name]; dup {
				continue
			}
			seenNames[name] = struct{}{}
			tools = append(tools, tool)
		}
	}
	return tools, nil
}

// StaticRetriever returns the same fixed tool list for every query, the
// degenerate strategy for small catalogs and tests.
type StaticRetriever []Tool

// Tools implements ToolRetriever.
func (r StaticRetriever) Tools(context.Context, string) ([]Tool, error) {
	return r, nil
}
