package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaEmbedder embeds through a local Ollama server. The Embed endpoint
// accepts a batch, so passage embedding sends all documents at once.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

// NewOllamaEmbedder connects to OLLAMA_HOST (default http://localhost:11434)
// with the given model, defaulting to nomic-embed-text.
func NewOllamaEmbedder(model string) (Embedder, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse OLLAMA_HOST: %w", err)
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		client: ollama.NewClient(base, &http.Client{Timeout: 60 * time.Second}),
		model:  model,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.request(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OllamaEmbedder) EmbedPassages(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	return e.request(ctx, docs, len(docs))
}

// request sends input (a string or a []string) and expects want vectors back.
func (e *OllamaEmbedder) request(ctx context.Context, input any, want int) ([][]float32, error) {
	res, err := e.client.Embed(ctx, &ollama.EmbedRequest{
		Model: e.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if res == nil || len(res.Embeddings) != want {
		return nil, fmt.Errorf("ollama embed: got %d vectors, want %d", lenEmbeddings(res), want)
	}
	for _, vec := range res.Embeddings {
		if len(vec) == 0 {
			return nil, ErrNotSupported
		}
	}
	return res.Embeddings, nil
}

func lenEmbeddings(res *ollama.EmbedResponse) int {
	if res == nil {
		return 0
	}
	return len(res.Embeddings)
}
