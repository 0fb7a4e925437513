package reagent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval"
)

// Catalog holds the full universe of tool groups available to the runtime.
// Groups keep their registration order, which becomes the tie-breaking rank
// in the retrieval index. Tool names are unique across the whole catalog and
// matched case sensitively, so "Echo" and "echo" are distinct names.
type Catalog struct {
	mu     sync.RWMutex
	groups map[string]Group
	tools  map[string]Tool
	order  []string
}

// NewCatalog constructs a catalog seeded with the provided groups.
func NewCatalog(groups ...Group) (*Catalog, error) {
	c := &Catalog{
		groups: make(map[string]Group),
		tools:  make(map[string]Tool),
	}
	for _, group := range groups {
		if err := c.AddGroup(group); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddGroup registers a group and every tool it carries. The group ID and all
// tool names must be non-empty and not yet taken; on any violation the
// catalog is left unchanged.
func (c *Catalog) AddGroup(group Group) error {
	id := strings.TrimSpace(group.ID)
	if id == "" {
		return fmt.Errorf("group id is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.groups[id]; exists {
		return fmt.Errorf("group %s already registered", id)
	}
	staged := make(map[string]Tool, len(group.Tools))
	for _, tool := range group.Tools {
		if tool == nil {
			return fmt.Errorf("group %s contains a nil tool", id)
		}
		name := tool.Spec().Name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("group %s contains an unnamed tool", id)
		}
		if _, exists := c.tools[name]; exists {
			return fmt.Errorf("tool %s already registered", name)
		}
		if _, dup := staged[name]; dup {
			return fmt.Errorf("tool %s appears twice in group %s", name, id)
		}
		staged[name] = tool
	}

	group.ID = id
	c.groups[id] = group
	for name, tool := range staged {
		c.tools[name] = tool
	}
	c.order = append(c.order, id)
	return nil
}

// Group returns the group registered under id.
func (c *Catalog) Group(id string) (Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	group, ok := c.groups[id]
	return group, ok
}

// Groups returns all groups in registration order.
func (c *Catalog) Groups() []Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make([]Group, 0, len(c.order))
	for _, id := range c.order {
		groups = append(groups, c.groups[id])
	}
	return groups
}

// Lookup returns the tool registered under name. Matching is exact.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.tools[name]
	return tool, ok
}

// Tools returns every registered tool, group-registration-major and
// declaration-order-minor within each group.
func (c *Catalog) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var tools []Tool
	for _, id := range c.order {
		tools = append(tools, c.groups[id].Tools...)
	}
	return tools
}

// Specs returns the specs of every registered tool in the same order as Tools.
func (c *Catalog) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var specs []ToolSpec
	for _, id := range c.order {
		for _, tool := range c.groups[id].Tools {
			specs = append(specs, tool.Spec())
		}
	}
	return specs
}

// Docs returns one retrieval document per group, in registration order. Feed
// the result to Index.Build so ranks line up with registration.
func (c *Catalog) Docs() []retrieval.Doc {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := make([]retrieval.Doc, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.groups[id].Doc())
	}
	return docs
}
