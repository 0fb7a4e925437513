// Package embed provides pluggable text-embedding providers for the tool
// retrieval index.
package embed

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/Protocol-Lattice/go-reagent/src/log"
)

// Embedder is a pluggable text-embedding provider. Embed encodes text for
// query-side lookups; providers that distinguish document and query encodings
// additionally implement PassageEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PassageEmbedder is implemented by providers that encode indexed documents
// differently from queries.
type PassageEmbedder interface {
	EmbedPassages(ctx context.Context, docs []string) ([][]float32, error)
}

// ErrNotSupported is returned by providers that do not offer embeddings.
var ErrNotSupported = errors.New("embeddings not supported by this provider")

// ---------- Dummy (fallback) ----------

// DummyEmbedder derives a deterministic vector from the raw bytes of the
// text. It has no semantic power but keeps the pipeline runnable without any
// provider credentials, and its determinism makes retrieval reproducible in
// tests.
type DummyEmbedder struct{}

func (DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return DummyEmbedding(text), nil
}

// DummyEmbedding folds the text bytes into a fixed 768-wide vector.
func DummyEmbedding(text string) []float32 {
	vec := make([]float32, 768)
	for i, ch := range []byte(text) {
		vec[i%768] += float32(ch) / 255.0
	}
	return vec
}

// FastEmbedOptions configures the local fastembed provider.
type FastEmbedOptions struct {
	Model     string // e.g. "BAAI/bge-small-en-v1.5" (default)
	CacheDir  string // e.g. ".fastembed"
	MaxLength int    // token limit, 0 = library default
	BatchSize int    // capped by CPU count
}

// Auto chooses a provider from env:
// REAGENT_EMBED_PROVIDER=openai|google|gemini|ollama|voyage|fastembed
// REAGENT_EMBED_MODEL=<model string>
// If unset or the provider cannot be constructed, it falls back to the
// deterministic dummy embedder.
func Auto() Embedder {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("REAGENT_EMBED_PROVIDER")))
	model := strings.TrimSpace(os.Getenv("REAGENT_EMBED_MODEL"))

	switch provider {
	case "openai":
		if e, err := NewOpenAIEmbedder(model); err == nil {
			return e
		}
	case "google", "gemini", "vertex", "vertexai":
		if e, err := NewVertexAIEmbedder(model); err == nil {
			return e
		}
	case "ollama":
		if e, err := NewOllamaEmbedder(model); err == nil {
			return e
		}
	case "voyage", "claude", "anthropic":
		if e, err := NewVoyageEmbedder(model); err == nil {
			return e
		}
	case "fastembed":
		if opts := defaultFastEmbedOptions(); opts != nil {
			if e, err := NewFastEmbed(context.Background(), opts); err == nil {
				return e
			}
		}
	}

	log.Warnf("embed: no usable provider for %q, falling back to deterministic dummy embedder", provider)
	return DummyEmbedder{}
}
