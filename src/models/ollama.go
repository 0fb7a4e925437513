package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaModel completes prompts through a local Ollama server.
type OllamaModel struct {
	Client *ollama.Client
	Model  string
}

// NewOllamaModel constructs a client for OLLAMA_HOST, defaulting to the
// local server.
func NewOllamaModel(model string) (*OllamaModel, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	client := ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second})
	return &OllamaModel{Client: client, Model: model}, nil
}

// Complete implements Model. Stop sequences ride in the request options and
// are enforced again client side.
func (o *OllamaModel) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"stop": stop},
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", err
	}
	return truncateAtStop(text.String(), stop), nil
}

var _ Model = (*OllamaModel)(nil)
