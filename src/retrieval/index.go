// Package retrieval builds a semantic index over tool-group descriptions and
// answers top-k similarity queries against it.
package retrieval

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Protocol-Lattice/go-reagent/src/log"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval/embed"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval/store"
)

// Doc is a tool-group description to be indexed.
type Doc struct {
	GroupID string
	Content string
}

// DefaultLimit is the number of groups returned when a query does not ask for
// a specific k.
const DefaultLimit = 6

// Index embeds group descriptions once at build time and ranks them against
// query embeddings. A fixed index and a fixed query always produce the same
// ordering: ties in similarity fall back to registration order.
type Index struct {
	embedder    embed.Embedder
	store       store.VectorStore
	limit       int
	parallelism int
	expansion   int

	mu    sync.RWMutex
	built bool
	size  int
}

// Option configures an Index.
type Option func(*Index)

// WithEmbedder sets the embedding provider. Defaults to the deterministic
// dummy embedder.
func WithEmbedder(e embed.Embedder) Option {
	return func(ix *Index) {
		if e != nil {
			ix.embedder = e
		}
	}
}

// WithStore sets the vector store backend. Defaults to the in-memory store.
func WithStore(s store.VectorStore) Option {
	return func(ix *Index) {
		if s != nil {
			ix.store = s
		}
	}
}

// WithDefaultLimit sets the k used when Query is called with a non-positive
// limit.
func WithDefaultLimit(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.limit = k
		}
	}
}

// WithParallelism bounds the number of concurrent embedding calls during
// Build. Defaults to the CPU count.
func WithParallelism(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.parallelism = n
		}
	}
}

// WithGraphExpansion appends up to n sibling groups per hit when the store
// tracks provider relationships. Zero disables expansion.
func WithGraphExpansion(n int) Option {
	return func(ix *Index) {
		if n >= 0 {
			ix.expansion = n
		}
	}
}

// New returns an Index ready for Build.
func New(opts ...Option) *Index {
	ix := &Index{
		embedder:    embed.DummyEmbedder{},
		store:       store.NewInMemoryStore(),
		limit:       DefaultLimit,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build embeds every doc and replaces the store contents. Group IDs must be
// unique; the position of each doc becomes its tie-breaking rank.
func (ix *Index) Build(ctx context.Context, docs []Doc) error {
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.GroupID == "" {
			return fmt.Errorf("index build: empty group id")
		}
		if _, dup := seen[doc.GroupID]; dup {
			return fmt.Errorf("index build: duplicate group id %q", doc.GroupID)
		}
		seen[doc.GroupID] = struct{}{}
	}

	if err := ix.store.Reset(ctx); err != nil {
		return buildError("reset store: %w", err)
	}
	if len(docs) == 0 {
		ix.mu.Lock()
		ix.built = true
		ix.size = 0
		ix.mu.Unlock()
		return nil
	}

	vectors, err := ix.embedDocs(ctx, docs)
	if err != nil {
		return err
	}

	records := make([]model.GroupDoc, len(docs))
	for i, doc := range docs {
		records[i] = model.GroupDoc{
			GroupID:   doc.GroupID,
			Content:   doc.Content,
			Rank:      i,
			Embedding: vectors[i],
		}
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return buildError("upsert: %w", err)
	}

	ix.mu.Lock()
	ix.built = true
	ix.size = len(docs)
	ix.mu.Unlock()
	log.Infof("retrieval index built with %d group(s)", len(docs))
	return nil
}

// embedDocs produces one vector per doc, batching through PassageEmbedder
// when the provider supports it and otherwise fanning out over a worker pool.
func (ix *Index) embedDocs(ctx context.Context, docs []Doc) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	if pe, ok := ix.embedder.(embed.PassageEmbedder); ok {
		vectors, err := pe.EmbedPassages(ctx, texts)
		if err != nil {
			return nil, buildError("embed passages: %w", err)
		}
		if len(vectors) != len(docs) {
			return nil, fmt.Errorf("index build: got %d vectors for %d docs", len(vectors), len(docs))
		}
		return vectors, nil
	}

	pool, err := ants.NewPool(ix.parallelism)
	if err != nil {
		return nil, fmt.Errorf("index build: create worker pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, len(docs))
	errCh := make(chan error, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		idx := i
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			vec, embedErr := ix.embedder.Embed(ctx, texts[idx])
			if embedErr != nil {
				errCh <- buildError("embed %q: %w", docs[idx].GroupID, embedErr)
				return
			}
			vectors[idx] = vec
		}); submitErr != nil {
			wg.Done()
			return nil, fmt.Errorf("index build: submit embed task: %w", submitErr)
		}
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	return vectors, nil
}

// Query embeds the text and returns the IDs of the most similar groups, most
// similar first. A non-positive limit falls back to the configured default.
func (ix *Index) Query(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = ix.limit
	}

	ix.mu.RLock()
	built, size := ix.built, ix.size
	ix.mu.RUnlock()
	if !built {
		return nil, fmt.Errorf("index query: index not built")
	}
	if size == 0 {
		return nil, nil
	}

	queryVec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, queryError("embed: %w", err)
	}

	hits, err := ix.store.Search(ctx, queryVec, limit)
	if err != nil {
		return nil, queryError("search: %w", err)
	}
	// Backends differ in how they order equal scores; normalize here so the
	// contract holds for every store.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Rank < hits[j].Rank
	})

	ids := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if _, dup := seen[hit.GroupID]; dup {
			continue
		}
		seen[hit.GroupID] = struct{}{}
		ids = append(ids, hit.GroupID)
	}

	if ix.expansion > 0 {
		ids = ix.expandSiblings(ctx, ids, seen)
	}
	return ids, nil
}

// expandSiblings appends provider siblings of each hit, in hit order, when
// the store maintains a group graph.
func (ix *Index) expandSiblings(ctx context.Context, ids []string, seen map[string]struct{}) []string {
	gs, ok := ix.store.(store.GraphStore)
	if !ok {
		return ids
	}
	expanded := ids
	for _, id := range ids {
		related, err := gs.RelatedGroups(ctx, id, ix.expansion)
		if err != nil {
			log.Warnf("retrieval: sibling expansion for %q failed: %v", id, err)
			continue
		}
		for _, sibling := range related {
			if _, dup := seen[sibling]; dup {
				continue
			}
			seen[sibling] = struct{}{}
			expanded = append(expanded, sibling)
		}
	}
	return expanded
}

// Count reports how many groups are indexed.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}
