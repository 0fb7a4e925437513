// Package store provides vector store backends for the tool retrieval index.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

// VectorStore is the contract every retrieval backend implements. Upsert is
// keyed by GroupID so rebuilding an index replaces prior descriptions.
type VectorStore interface {
	Upsert(ctx context.Context, docs []model.GroupDoc) error
	Search(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// SchemaInitializer allows stores to expose optional schema/bootstrap routines.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context, schemaPath string) error
}

// GraphStore is implemented by stores that additionally track which groups
// come from the same provider, so retrieval can pull in sibling groups.
type GraphStore interface {
	LinkGroups(ctx context.Context, source string, groupIDs []string) error
	RelatedGroups(ctx context.Context, groupID string, limit int) ([]string, error)
}

// InMemoryStore implements VectorStore for tests and single-process agents.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]model.GroupDoc
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]model.GroupDoc)}
}

func (s *InMemoryStore) Upsert(_ context.Context, docs []model.GroupDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs == nil {
		s.docs = make(map[string]model.GroupDoc)
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		doc.Embedding = append([]float32(nil), doc.Embedding...)
		if doc.IndexedAt.IsZero() {
			doc.IndexedAt = now
		}
		s.docs[doc.GroupID] = doc
	}
	return nil
}

func (s *InMemoryStore) Search(_ context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	scored := make([]model.GroupDoc, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Score = model.CosineSimilarity(queryEmbedding, doc.Embedding)
		doc.Embedding = append([]float32(nil), doc.Embedding...)
		scored = append(scored, doc)
	}
	// Equal scores fall back to registration order so results are stable.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Rank < scored[j].Rank
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *InMemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]model.GroupDoc)
	return nil
}
