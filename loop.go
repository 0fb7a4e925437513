package reagent

import (
	"context"
	"errors"
	"strings"

	"github.com/Protocol-Lattice/go-reagent/src/log"
	"github.com/Protocol-Lattice/go-reagent/src/models"
)

// DefaultMaxSteps is the step bound wired by the CLI and examples. The loop
// itself honors Options.MaxSteps literally, including zero.
const DefaultMaxSteps = 15

// stopSequences keeps the model from fabricating observations; the loop, not
// the model, supplies the real one after running the tool.
var stopSequences = []string{"\nObservation:"}

// Options configure a new Loop.
type Options struct {
	Model     models.Model
	Retriever ToolRetriever

	// AllowedTools is the invocation authorization set, fixed for the
	// lifetime of each run. When empty, the loop freezes the retriever's
	// result for the session query at run start. The prompt's displayed
	// tool list is recomputed every turn and may drift from this set; a
	// rendered name outside it fails the run as an unknown tool.
	AllowedTools []Tool

	// Template defaults to DefaultTemplate when nil.
	Template *Template

	// MaxSteps bounds executed actions per run. Zero forbids any model
	// call; there is no implicit default.
	MaxSteps int

	// AbortOnToolError turns tool failures into fatal *ToolError instead
	// of feeding them back to the model as observations.
	AbortOnToolError bool

	Logger log.Logger
}

// Loop drives the think, act, observe cycle: render prompt, call the model,
// parse its output, run the chosen tool, append the observation, repeat.
type Loop struct {
	model            models.Model
	retriever        ToolRetriever
	allowed          []Tool
	template         *Template
	maxSteps         int
	abortOnToolError bool
	logger           log.Logger
}

// New creates a Loop with the provided options.
func New(opts Options) (*Loop, error) {
	if opts.Model == nil {
		return nil, errors.New("loop requires a model")
	}
	if opts.Retriever == nil {
		return nil, errors.New("loop requires a tool retriever")
	}
	if opts.MaxSteps < 0 {
		return nil, errors.New("max steps must not be negative")
	}

	template := opts.Template
	if template == nil {
		template = MustTemplate(DefaultTemplate)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default
	}

	return &Loop{
		model:            opts.Model,
		retriever:        opts.Retriever,
		allowed:          append([]Tool(nil), opts.AllowedTools...),
		template:         template,
		maxSteps:         opts.MaxSteps,
		abortOnToolError: opts.AbortOnToolError,
		logger:           logger,
	}, nil
}

// Run answers query and returns the final answer text. Each Run owns a fresh
// session; use NewSession plus Resume to keep the transcript afterwards.
func (l *Loop) Run(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("query is empty")
	}
	return l.Resume(ctx, NewSession(query))
}

// Resume continues session until a final answer or a fatal error. The
// session is mutated in place, so callers keep the transcript either way and
// can checkpoint it between calls.
func (l *Loop) Resume(ctx context.Context, session *Session) (string, error) {
	if session == nil {
		return "", errors.New("session is nil")
	}
	if session.Steps >= l.maxSteps {
		return "", &MaxStepsError{MaxSteps: l.maxSteps, LastRaw: lastRaw(session)}
	}

	allowed, err := l.allowedFor(ctx, session)
	if err != nil {
		return "", err
	}

	for {
		tools, err := l.retriever.Tools(ctx, session.Query)
		if err != nil {
			return "", err
		}
		prompt := l.template.Render(session.Query, session.Transcript, tools)

		completion, err := l.model.Complete(ctx, prompt, stopSequences)
		if err != nil {
			return "", &ModelError{Step: session.Steps, Err: err}
		}

		action, err := Parse(completion)
		if err != nil {
			return "", err
		}

		if action.Kind == ActionFinish {
			l.logger.Infof("session %s finished after %d step(s)", session.ID, session.Steps)
			return action.Output, nil
		}

		tool, ok := allowed[action.Tool]
		if !ok {
			return "", &UnknownToolError{Tool: action.Tool, Step: session.Steps}
		}

		observation, err := tool.Invoke(ctx, action.Input)
		if err != nil {
			if l.abortOnToolError {
				return "", &ToolError{Tool: action.Tool, Step: session.Steps, Err: err}
			}
			// Surfacing the failure as the observation lets the model
			// read it and adapt.
			observation = "tool error: " + err.Error()
		}

		session.append(action, observation)
		l.logger.Debugf("session %s step %d: %s(%s) -> %d byte(s)",
			session.ID, session.Steps, action.Tool, clip(action.Input, 80), len(observation))

		if session.Steps >= l.maxSteps {
			return "", &MaxStepsError{MaxSteps: l.maxSteps, LastRaw: completion}
		}
	}
}

// allowedFor resolves the frozen authorization set for one run and indexes
// it by exact name.
func (l *Loop) allowedFor(ctx context.Context, session *Session) (map[string]Tool, error) {
	tools := l.allowed
	if len(tools) == 0 {
		fetched, err := l.retriever.Tools(ctx, session.Query)
		if err != nil {
			return nil, err
		}
		tools = fetched
	}

	allowed := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		allowed[tool.Spec().Name] = tool
	}
	return allowed, nil
}

func lastRaw(session *Session) string {
	if n := len(session.Transcript); n > 0 {
		return session.Transcript[n-1].Action.RawLog
	}
	return ""
}
