package models

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Protocol-Lattice/go-reagent/src/cache"
)

// CachedModel wraps a Model and caches Complete calls.
type CachedModel struct {
	Model    Model
	Cache    *cache.LRU
	FilePath string
}

// NewCachedModel creates a new CachedModel wrapper.
func NewCachedModel(model Model, size int, ttl time.Duration, filePath string) *CachedModel {
	c := &CachedModel{
		Model:    model,
		Cache:    cache.NewLRU(size, ttl),
		FilePath: filePath,
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedModel) load() {
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

func (c *CachedModel) save() {
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

// Complete checks the cache before calling the underlying model. The stop
// sequences are part of the key, since they change what the model returns.
func (c *CachedModel) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	key := cache.Key(prompt + "\x00" + strings.Join(stop, "\x00"))
	if val, ok := c.Cache.Get(key); ok {
		return fmt.Sprint(val), nil
	}

	res, err := c.Model.Complete(ctx, prompt, stop)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	c.save()
	return res, nil
}

// TryCache checks env vars and wraps the model if caching is enabled.
func TryCache(model Model) Model {
	sizeStr := os.Getenv("REAGENT_MODEL_CACHE_SIZE")
	if sizeStr == "" {
		return model
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return model
	}

	ttlStr := os.Getenv("REAGENT_MODEL_CACHE_TTL")
	ttl := 300 * time.Second // default 5 mins
	if ttlStr != "" {
		if sec, err := strconv.Atoi(ttlStr); err == nil && sec > 0 {
			ttl = time.Duration(sec) * time.Second
		}
	}

	path := os.Getenv("REAGENT_MODEL_CACHE_PATH")
	if path == "" {
		path = ".reagent_cache.json"
	}

	return NewCachedModel(model, size, ttl, path)
}

var _ Model = (*CachedModel)(nil)
