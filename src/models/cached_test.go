package models

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type countingModel struct {
	CallCount int32
	Response  string
}

func (m *countingModel) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	atomic.AddInt32(&m.CallCount, 1)
	return m.Response, nil
}

func TestCachedModelComplete(t *testing.T) {
	mock := &countingModel{Response: "mock response"}
	cached := NewCachedModel(mock, 10, time.Minute, "")

	ctx := context.Background()
	prompt := "hello"

	// First call - should hit the model
	out, err := cached.Complete(ctx, prompt, nil)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if out != "mock response" {
		t.Fatalf("unexpected completion: %q", out)
	}
	if count := atomic.LoadInt32(&mock.CallCount); count != 1 {
		t.Errorf("expected 1 call, got %d", count)
	}

	// Second call - should hit the cache
	_, err = cached.Complete(ctx, prompt, nil)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if count := atomic.LoadInt32(&mock.CallCount); count != 1 {
		t.Errorf("expected 1 call (cached), got %d", count)
	}

	// Different prompt - should hit the model
	_, err = cached.Complete(ctx, "world", nil)
	if err != nil {
		t.Fatalf("third call failed: %v", err)
	}
	if count := atomic.LoadInt32(&mock.CallCount); count != 2 {
		t.Errorf("expected 2 calls, got %d", count)
	}

	// Same prompt, different stops - stops are part of the key
	_, err = cached.Complete(ctx, prompt, []string{"\nObservation:"})
	if err != nil {
		t.Fatalf("fourth call failed: %v", err)
	}
	if count := atomic.LoadInt32(&mock.CallCount); count != 3 {
		t.Errorf("expected 3 calls, got %d", count)
	}
}

func TestCachedModelPersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	first := &countingModel{Response: "persisted"}
	cached := NewCachedModel(first, 10, time.Minute, path)
	if _, err := cached.Complete(ctx, "hello", nil); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// A fresh wrapper over a fresh model should answer from disk.
	second := &countingModel{Response: "should not be used"}
	reloaded := NewCachedModel(second, 10, time.Minute, path)
	out, err := reloaded.Complete(ctx, "hello", nil)
	if err != nil {
		t.Fatalf("reloaded complete failed: %v", err)
	}
	if out != "persisted" {
		t.Fatalf("expected cached completion, got %q", out)
	}
	if count := atomic.LoadInt32(&second.CallCount); count != 0 {
		t.Errorf("expected 0 calls after reload, got %d", count)
	}
}

func TestTryCacheDisabledWithoutEnv(t *testing.T) {
	t.Setenv("REAGENT_MODEL_CACHE_SIZE", "")

	base := &countingModel{Response: "plain"}
	if got := TryCache(base); got != Model(base) {
		t.Fatal("expected the model to pass through unwrapped")
	}
}

func TestTryCacheWrapsWhenConfigured(t *testing.T) {
	t.Setenv("REAGENT_MODEL_CACHE_SIZE", "8")
	t.Setenv("REAGENT_MODEL_CACHE_TTL", "60")
	t.Setenv("REAGENT_MODEL_CACHE_PATH", filepath.Join(t.TempDir(), "cache.json"))

	base := &countingModel{Response: "wrapped"}
	got := TryCache(base)
	if _, ok := got.(*CachedModel); !ok {
		t.Fatalf("expected a *CachedModel, got %T", got)
	}
}
