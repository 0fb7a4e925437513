package embed

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/Protocol-Lattice/go-reagent/src/cache"
)

// CachedEmbedder wraps an Embedder and memoises vectors by text. Query and
// passage encodings are cached under distinct keys because asymmetric
// providers produce different vectors for the same text.
type CachedEmbedder struct {
	Inner    Embedder
	Cache    *cache.LRU
	FilePath string
}

// NewCachedEmbedder wraps inner with an LRU of the given size and ttl. When
// filePath is non-empty the cache is loaded from and persisted to that file.
func NewCachedEmbedder(inner Embedder, size int, ttl time.Duration, filePath string) *CachedEmbedder {
	c := &CachedEmbedder{
		Inner:    inner,
		Cache:    cache.NewLRU(size, ttl),
		FilePath: filePath,
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedEmbedder) load() {
	f, err := os.Open(c.FilePath)
	if err != nil {
		return // ignore errors (file not found, etc)
	}
	defer f.Close()

	var dump map[string]cache.Entry
	if err := json.NewDecoder(f).Decode(&dump); err == nil {
		c.Cache.Restore(dump)
	}
}

func (c *CachedEmbedder) save() {
	if c.FilePath == "" {
		return
	}
	dump := c.Cache.Dump()

	// Atomic write: write to temp, then rename
	tmp := c.FilePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	if err := json.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}
	f.Close()
	os.Rename(tmp, c.FilePath)
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key("q:" + text)
	if val, ok := c.Cache.Get(key); ok {
		if vec, ok := toVector(val); ok {
			return vec, nil
		}
	}

	vec, err := c.Inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, vec)
	c.save()
	return vec, nil
}

func (c *CachedEmbedder) EmbedPassages(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	var missing []string
	var missingIdx []int
	for i, d := range docs {
		if val, ok := c.Cache.Get(cache.Key("p:" + d)); ok {
			if vec, ok := toVector(val); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, d)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := embedPassages(ctx, c.Inner, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.Cache.Set(cache.Key("p:"+missing[j]), vec)
	}
	c.save()
	return out, nil
}

// embedPassages batches through PassageEmbedder when the provider supports it
// and falls back to one Embed call per document otherwise.
func embedPassages(ctx context.Context, e Embedder, docs []string) ([][]float32, error) {
	if pe, ok := e.(PassageEmbedder); ok {
		return pe.EmbedPassages(ctx, docs)
	}
	out := make([][]float32, len(docs))
	for i, d := range docs {
		vec, err := e.Embed(ctx, d)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// toVector recovers a []float32 from a cache value, which may have round
// tripped through JSON as []any of float64.
func toVector(val any) ([]float32, bool) {
	switch v := val.(type) {
	case []float32:
		return v, true
	case []any:
		vec := make([]float32, len(v))
		for i, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, false
			}
			vec[i] = float32(f)
		}
		return vec, true
	}
	return nil, false
}
