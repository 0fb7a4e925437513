package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func TestDummyEmbeddingShape(t *testing.T) {
	vec := DummyEmbedding("list my orders")
	if len(vec) != 768 {
		t.Fatalf("expected dummy embedding to be length 768, got %d", len(vec))
	}
	if vec[0] == 0 {
		t.Fatalf("expected dummy embedding to have non-zero signal")
	}
}

func TestDummyEmbeddingDeterministic(t *testing.T) {
	a := DummyEmbedding("clothing store tools")
	b := DummyEmbedding("clothing store tools")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical vectors for identical text, diverged at %d", i)
		}
	}
}

func TestAutoSelection(t *testing.T) {
	t.Setenv("REAGENT_EMBED_PROVIDER", "openai")
	t.Setenv("REAGENT_EMBED_MODEL", "test-model")
	t.Setenv("OPENAI_API_KEY", "dummy-key")

	embedder := Auto()
	if _, ok := embedder.(*OpenAIEmbedder); !ok {
		t.Fatalf("expected Auto to return *OpenAIEmbedder, got %T", embedder)
	}
}

func TestAutoFallback(t *testing.T) {
	t.Setenv("REAGENT_EMBED_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OLLAMA_HOST", "")

	embedder := Auto()
	if _, ok := embedder.(DummyEmbedder); !ok {
		t.Fatalf("expected Auto to fall back to DummyEmbedder, got %T", embedder)
	}
}

func TestCachedEmbedderMemoises(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 8, time.Hour, "")

	ctx := context.Background()
	first, err := cached.Embed(ctx, "search products")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, err := cached.Embed(ctx, "search products")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", inner.calls)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("expected cached vector to match original")
	}
}

func TestCachedEmbedderSeparatesPassageAndQuery(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 8, time.Hour, "")

	ctx := context.Background()
	if _, err := cached.Embed(ctx, "orders"); err != nil {
		t.Fatalf("query embed failed: %v", err)
	}
	if _, err := cached.EmbedPassages(ctx, []string{"orders"}); err != nil {
		t.Fatalf("passage embed failed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected passage and query encodings to cache separately, got %d calls", inner.calls)
	}
}

func TestCachedEmbedderPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embed_cache.json")

	inner := &countingEmbedder{}
	first := NewCachedEmbedder(inner, 8, time.Hour, path)
	if _, err := first.Embed(context.Background(), "payments"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	second := NewCachedEmbedder(inner, 8, time.Hour, path)
	if _, err := second.Embed(context.Background(), "payments"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected restored cache to serve the second call, got %d calls", inner.calls)
	}
}

func TestOpenAIEmbedderBatchesPassages(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs in one batch, got %d", len(req.Input))
		}
		w.Header().Set("Content-Type", "application/json")
		// Deliberately out of order; the embedder must sort by index.
		w.Write([]byte(`{"object":"list","data":[
                        {"object":"embedding","index":1,"embedding":[0.3,0.4]},
                        {"object":"embedding","index":0,"embedding":[0.1,0.2]}
                ],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	e := &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: "text-embedding-3-small"}

	vecs, err := e.EmbedPassages(context.Background(), []string{"shirt tools", "math tools"})
	if err != nil {
		t.Fatalf("passage embed failed: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single batched request, got %d", requests)
	}
	if len(vecs) != 2 || vecs[0][0] != 0.1 || vecs[1][0] != 0.3 {
		t.Fatalf("expected index-ordered vectors, got %#v", vecs)
	}
}

func TestOllamaEmbedderBatchesPassages(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	t.Setenv("OLLAMA_HOST", srv.URL)
	e, err := NewOllamaEmbedder("")
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	vecs, err := e.(*OllamaEmbedder).EmbedPassages(context.Background(), []string{"shirt tools", "math tools"})
	if err != nil {
		t.Fatalf("passage embed failed: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single batched request, got %d", requests)
	}
	if len(vecs) != 2 || vecs[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %#v", vecs)
	}
}

func TestVoyageEmbedderInputTypes(t *testing.T) {
	var gotTypes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input     []string `json:"input"`
			InputType string   `json:"input_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotTypes = append(gotTypes, req.InputType)
		w.Header().Set("Content-Type", "application/json")
		body := `{"data":[`
		for i := range req.Input {
			if i > 0 {
				body += ","
			}
			body += `{"embedding":[0.1,0.2],"index":` + strconv.Itoa(i) + `}`
		}
		body += `]}`
		w.Write([]byte(body))
	}))
	defer srv.Close()

	t.Setenv("VOYAGE_API_KEY", "test-key")
	t.Setenv("VOYAGE_API_BASE", srv.URL)

	e, err := NewVoyageEmbedder("")
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	voyage := e.(*VoyageEmbedder)

	ctx := context.Background()
	if _, err := voyage.Embed(ctx, "what shirts are in stock"); err != nil {
		t.Fatalf("query embed failed: %v", err)
	}
	vecs, err := voyage.EmbedPassages(ctx, []string{"shirt tools", "math tools"})
	if err != nil {
		t.Fatalf("passage embed failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if len(gotTypes) != 2 || gotTypes[0] != "query" || gotTypes[1] != "document" {
		t.Fatalf("expected input types [query document], got %v", gotTypes)
	}
}

func TestVoyageEmbedderMissingKey(t *testing.T) {
	t.Setenv("VOYAGE_API_KEY", "")
	e, err := NewVoyageEmbedder("")
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	if _, err := e.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected an error without VOYAGE_API_KEY")
	}
}
