// Package helpers carries small flag-parsing and formatting utilities shared
// by the CLI and examples.
package helpers

import (
	"strings"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

// ParseCSVList splits a comma separated flag value, dropping empty entries.
func ParseCSVList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ToolNames renders tool names for banners and log lines.
func ToolNames(tools []reagent.Tool) string {
	if len(tools) == 0 {
		return "<none>"
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Spec().Name
	}
	return strings.Join(names, ", ")
}

// GroupNames renders group IDs in registration order.
func GroupNames(groups []reagent.Group) string {
	if len(groups) == 0 {
		return "<none>"
	}
	names := make([]string, len(groups))
	for i, group := range groups {
		names[i] = group.ID
	}
	return strings.Join(names, ", ")
}
