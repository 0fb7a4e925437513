package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// VoyageEmbedder calls the Voyage AI embeddings API. It is the only bundled
// provider with distinct document and query encodings, so it also satisfies
// PassageEmbedder. Requires VOYAGE_API_KEY.
// Defaults:
//   - model: "voyage-3.5" (override via REAGENT_EMBED_MODEL)
//   - endpoint: "https://api.voyageai.com/v1/embeddings" (override via VOYAGE_API_BASE)
type VoyageEmbedder struct {
	client   *http.Client
	apiKey   string
	model    string
	endpoint string
}

func NewVoyageEmbedder(model string) (Embedder, error) {
	apiKey := os.Getenv("VOYAGE_API_KEY")
	if model == "" {
		model = "voyage-3.5"
	}
	endpoint := os.Getenv("VOYAGE_API_BASE")
	if endpoint == "" {
		endpoint = "https://api.voyageai.com/v1/embeddings"
	}

	return &VoyageEmbedder{
		client:   &http.Client{Timeout: 60 * time.Second},
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
	}, nil
}

// Embed encodes a query-side string.
func (v *VoyageEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := v.request(ctx, []string{text}, "query")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedPassages encodes a batch of indexed documents.
func (v *VoyageEmbedder) EmbedPassages(ctx context.Context, docs []string) ([][]float32, error) {
	return v.request(ctx, docs, "document")
}

func (v *VoyageEmbedder) request(ctx context.Context, inputs []string, inputType string) ([][]float32, error) {
	if v.apiKey == "" {
		return nil, errors.New("VoyageEmbedder: VOYAGE_API_KEY not set")
	}

	payload := map[string]any{
		"input":      inputs,
		"model":      v.model,
		"input_type": inputType,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("voyage embeddings HTTP %d: %s", resp.StatusCode, string(slurp))
	}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("voyage embeddings: got %d vectors for %d inputs", len(out.Data), len(inputs))
	}

	vecs := make([][]float32, len(out.Data))
	for _, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, ErrNotSupported
		}
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("voyage embeddings: index %d out of range", d.Index)
		}
		vecs[d.Index] = f64toF32(d.Embedding)
	}
	return vecs, nil
}

func f64toF32(v []float64) []float32 {
	r := make([]float32, len(v))
	for i, x := range v {
		r[i] = float32(x)
	}
	return r
}
