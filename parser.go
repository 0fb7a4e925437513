package reagent

import (
	"regexp"
	"strings"
)

// ActionKind tags the two structured outcomes of a model completion.
type ActionKind int

const (
	ActionInvoke ActionKind = iota
	ActionFinish
)

// Action is the structured reading of one model completion: either invoke a
// named tool with an input, or finish with an answer. RawLog preserves the
// exact completion text so the transcript can replay it verbatim.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Tool   string     `json:"tool,omitempty"`
	Input  string     `json:"input,omitempty"`
	Output string     `json:"output,omitempty"`
	RawLog string     `json:"raw_log"`
}

const finalAnswerMarker = "Final Answer:"

var actionPattern = regexp.MustCompile(`Action:([^\n]+)\n+Action Input:(?s)(.+)`)

// Parse turns raw completion text into an Action. A "Final Answer:" marker
// wins over everything else, taking the text after its last occurrence.
// Otherwise the text must carry an "Action:" line followed by "Action Input:"
// with the input free to span lines. Anything else is a hard *ParseError;
// ambiguous output is never guessed at.
func Parse(text string) (Action, error) {
	if idx := strings.LastIndex(text, finalAnswerMarker); idx >= 0 {
		output := strings.TrimSpace(text[idx+len(finalAnswerMarker):])
		return Action{Kind: ActionFinish, Output: output, RawLog: text}, nil
	}

	m := actionPattern.FindStringSubmatch(text)
	if m == nil {
		return Action{}, &ParseError{Raw: text}
	}
	return Action{
		Kind:   ActionInvoke,
		Tool:   strings.TrimSpace(m[1]),
		Input:  stripQuoteLayer(strings.TrimSpace(m[2])),
		RawLog: text,
	}, nil
}

// stripQuoteLayer removes one symmetric layer of double quotes. Models often
// quote the whole input; a single quote character on one end is left alone.
func stripQuoteLayer(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
