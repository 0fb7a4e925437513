//go:build fastembed

package embed

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedder runs bge-small-en-v1.5 locally over ONNX, so indexing works
// offline. Documents are embedded with the "passage:" prefix and queries
// without one, matching the model's asymmetric training.
type FastEmbedder struct {
	flag  *fastembed.FlagEmbedding
	batch int
}

func defaultFastEmbedOptions() *FastEmbedOptions {
	return &FastEmbedOptions{
		Model:     string(fastembed.BGESmallENV15),
		CacheDir:  ".fastembed",
		BatchSize: 64,
	}
}

// NewFastEmbed downloads (or reuses) the ONNX model and returns an embedder.
// Call Close to release the runtime.
func NewFastEmbed(ctx context.Context, opt *FastEmbedOptions) (Embedder, error) {
	var init *fastembed.InitOptions
	if opt != nil {
		init = &fastembed.InitOptions{
			Model:     fastembed.EmbeddingModel(opt.Model),
			CacheDir:  opt.CacheDir,
			MaxLength: opt.MaxLength,
		}
	}
	flag, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, fmt.Errorf("fastembed init: %w", err)
	}

	batch := 64
	if opt != nil && opt.BatchSize > 0 {
		batch = opt.BatchSize
	}
	// ONNX sessions scale poorly past the CPU count.
	if limit := 4 * runtime.GOMAXPROCS(0); batch > limit {
		batch = limit
	}
	return &FastEmbedder{flag: flag, batch: batch}, nil
}

func (e *FastEmbedder) Close() error {
	if e.flag != nil {
		e.flag.Destroy()
	}
	return nil
}

func (e *FastEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.flag.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed query: %w", err)
	}
	return vec, nil
}

func (e *FastEmbedder) EmbedPassages(ctx context.Context, docs []string) ([][]float32, error) {
	inputs := make([]string, len(docs))
	for i, doc := range docs {
		if strings.HasPrefix(doc, "passage:") {
			inputs[i] = doc
		} else {
			inputs[i] = "passage: " + doc
		}
	}
	vecs, err := e.flag.PassageEmbed(inputs, e.batch)
	if err != nil {
		return nil, fmt.Errorf("fastembed passages: %w", err)
	}
	return vecs, nil
}
