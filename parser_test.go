package reagent

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFinalAnswer(t *testing.T) {
	text := "Thought: I now know the final answer.\nFinal Answer: 42"

	action, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Kind != ActionFinish {
		t.Fatalf("expected a finish action, got kind %d", action.Kind)
	}
	if action.Output != "42" {
		t.Fatalf("unexpected output: %q", action.Output)
	}
	if action.RawLog != text {
		t.Fatalf("expected raw log to keep the full completion, got %q", action.RawLog)
	}
}

func TestParseFinalAnswerTrimsWhitespace(t *testing.T) {
	action, err := Parse("Final Answer:   blue shirts  \n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Output != "blue shirts" {
		t.Fatalf("unexpected output: %q", action.Output)
	}
}

func TestParseFinalAnswerWinsOverAction(t *testing.T) {
	text := "Action: Echo.say\nAction Input: hi\nFinal Answer: done"

	action, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Kind != ActionFinish {
		t.Fatalf("expected the final answer to win, got kind %d", action.Kind)
	}
	if action.Output != "done" {
		t.Fatalf("unexpected output: %q", action.Output)
	}
}

func TestParseFinalAnswerUsesLastOccurrence(t *testing.T) {
	text := "Final Answer: draft\nThought: wait, revising\nFinal Answer: final"

	action, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Output != "final" {
		t.Fatalf("expected text after the last marker, got %q", action.Output)
	}
}

func TestParseFinalAnswerMayBeEmpty(t *testing.T) {
	action, err := Parse("Final Answer:")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Kind != ActionFinish || action.Output != "" {
		t.Fatalf("expected an empty finish, got %+v", action)
	}
}

func TestParseAction(t *testing.T) {
	text := "Thought: I should look this up.\nAction: Shirts.search\nAction Input: \"summer collection\""

	action, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Kind != ActionInvoke {
		t.Fatalf("expected an invoke action, got kind %d", action.Kind)
	}
	if action.Tool != "Shirts.search" {
		t.Fatalf("unexpected tool: %q", action.Tool)
	}
	if action.Input != "summer collection" {
		t.Fatalf("expected the quote layer to be stripped, got %q", action.Input)
	}
	if action.RawLog != text {
		t.Fatalf("expected raw log to keep the full completion, got %q", action.RawLog)
	}
}

func TestParseActionMultilineInput(t *testing.T) {
	text := "Action: Files.write\nAction Input: line one\nline two\nline three"

	action, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Input != "line one\nline two\nline three" {
		t.Fatalf("expected the input to span lines, got %q", action.Input)
	}
}

func TestParseActionBlankLinesBeforeInput(t *testing.T) {
	action, err := Parse("Action: Echo.say\n\n\nAction Input: hi")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Tool != "Echo.say" || action.Input != "hi" {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestParseActionTrimsNameAndInput(t *testing.T) {
	action, err := Parse("Action:   Echo.say  \nAction Input:   spaced out  ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if action.Tool != "Echo.say" {
		t.Fatalf("unexpected tool: %q", action.Tool)
	}
	if action.Input != "spaced out" {
		t.Fatalf("unexpected input: %q", action.Input)
	}
}

func TestParseQuoteStripping(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"symmetric quotes", `"hello"`, "hello"},
		{"one layer only", `""hello""`, `"hello"`},
		{"leading quote alone", `"hello`, `"hello`},
		{"trailing quote alone", `hello"`, `hello"`},
		{"inner quotes kept", `say "hi" now`, `say "hi" now`},
		{"lone quote", `"`, `"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := Parse("Action: Echo.say\nAction Input: " + tc.raw)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if action.Input != tc.want {
				t.Fatalf("input %q parsed to %q, want %q", tc.raw, action.Input, tc.want)
			}
		})
	}
}

func TestParseRejectsUnstructuredText(t *testing.T) {
	text := "I am not sure what to do next."

	_, err := Parse(text)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Raw != text {
		t.Fatalf("expected the raw completion to be preserved, got %q", perr.Raw)
	}
	if !strings.Contains(perr.Error(), "could not parse model output") {
		t.Fatalf("unexpected error text: %v", perr)
	}
}

func TestParseRejectsActionWithoutInput(t *testing.T) {
	if _, err := Parse("Action: Echo.say\nand nothing else"); err == nil {
		t.Fatal("expected a parse error when Action Input is missing")
	}
}

func TestParseRejectsActionInputOnSameLine(t *testing.T) {
	if _, err := Parse("Action: Echo.say Action Input: hi"); err == nil {
		t.Fatal("expected a parse error when both markers share a line")
	}
}

func TestParseRejectsEmptyActionName(t *testing.T) {
	if _, err := Parse("Action:\nAction Input: hi"); err == nil {
		t.Fatal("expected a parse error for an empty action name")
	}
}

func TestParseErrorClipsLongOutput(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if len(err.Error()) > 300 {
		t.Fatalf("expected the error text to be clipped, got %d bytes", len(err.Error()))
	}
}
