package helpers

import (
	"context"
	"testing"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

func TestParseCSVList(t *testing.T) {
	got := ParseCSVList(" a, ,b ,, c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("ParseCSVList returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseCSVList returned %v, want %v", got, want)
		}
	}
	if ParseCSVList("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestToolNames(t *testing.T) {
	noop := func(context.Context, string) (string, error) { return "", nil }
	tools := []reagent.Tool{
		reagent.NewTool("Echo.say", "d", noop),
		reagent.NewTool("Clock.now", "d", noop),
	}
	if got := ToolNames(tools); got != "Echo.say, Clock.now" {
		t.Fatalf("unexpected tool names: %q", got)
	}
	if got := ToolNames(nil); got != "<none>" {
		t.Fatalf("unexpected empty rendering: %q", got)
	}
}

func TestGroupNames(t *testing.T) {
	groups := []reagent.Group{{ID: "Echo"}, {ID: "Clock"}}
	if got := GroupNames(groups); got != "Echo, Clock" {
		t.Fatalf("unexpected group names: %q", got)
	}
	if got := GroupNames(nil); got != "<none>" {
		t.Fatalf("unexpected empty rendering: %q", got)
	}
}
