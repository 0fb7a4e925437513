package reagent

import (
	"fmt"
	"strings"
)

// Placeholders every template must define.
const (
	placeholderTools      = "{tools}"
	placeholderToolNames  = "{tool_names}"
	placeholderInput      = "{input}"
	placeholderScratchpad = "{agent_scratchpad}"
)

// DefaultTemplate is the question/thought/action prompt the loop uses when
// Options leaves Template nil.
const DefaultTemplate = `Answer the following questions as best you can. You have access to the following tools:

{tools}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{tool_names}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Begin!

Question: {input}
Thought: {agent_scratchpad}`

// Template renders the model-facing prompt. Construction validates the
// placeholder set once, so Render never fails at runtime.
type Template struct {
	text string
}

// NewTemplate validates text and returns a Template. All four placeholders
// must be present; a missing one is a configuration error, not a runtime one.
func NewTemplate(text string) (*Template, error) {
	for _, ph := range []string{placeholderTools, placeholderToolNames, placeholderInput, placeholderScratchpad} {
		if !strings.Contains(text, ph) {
			return nil, fmt.Errorf("prompt template is missing %s", ph)
		}
	}
	return &Template{text: text}, nil
}

// MustTemplate is NewTemplate that panics on invalid text, for templates
// fixed at compile time.
func MustTemplate(text string) *Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Render substitutes the query, transcript, and tool subset into the
// template. It is pure: retrieval and model calls never happen here.
func (t *Template) Render(query string, transcript []TranscriptEntry, tools []Tool) string {
	var scratchpad strings.Builder
	scratchpad.Grow(256 * len(transcript))
	for _, entry := range transcript {
		scratchpad.WriteString(entry.Action.RawLog)
		scratchpad.WriteString("\nObservation: ")
		scratchpad.WriteString(entry.Observation)
		scratchpad.WriteString("\nThought: ")
	}

	lines := make([]string, 0, len(tools))
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		spec := tool.Spec()
		lines = append(lines, spec.Name+": "+spec.Description)
		names = append(names, spec.Name)
	}

	return strings.NewReplacer(
		placeholderTools, strings.Join(lines, "\n"),
		placeholderToolNames, strings.Join(names, ", "),
		placeholderInput, query,
		placeholderScratchpad, scratchpad.String(),
	).Replace(t.text)
}
