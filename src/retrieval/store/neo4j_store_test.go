package store

import (
	"context"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

type fakeNeo4jDriver struct {
	session *fakeNeo4jSession
}

func (d *fakeNeo4jDriver) NewSession(_ context.Context, _ Neo4jSessionConfig) (neo4jSession, error) {
	return d.session, nil
}

func (d *fakeNeo4jDriver) Close(context.Context) error { return nil }

type runCall struct {
	query  string
	params map[string]any
}

type fakeNeo4jSession struct {
	calls []runCall
	// results maps a query fragment to the rows returned for queries containing it.
	results map[string][]map[string]any
}

func (s *fakeNeo4jSession) Run(_ context.Context, query string, params map[string]any) (neo4jResult, error) {
	s.calls = append(s.calls, runCall{query: query, params: params})
	for fragment, rows := range s.results {
		if strings.Contains(query, fragment) {
			return &fakeNeo4jResult{rows: rows}, nil
		}
	}
	return &fakeNeo4jResult{}, nil
}

func (s *fakeNeo4jSession) Close(context.Context) error { return nil }

type fakeNeo4jResult struct {
	rows []map[string]any
	pos  int
}

func (r *fakeNeo4jResult) Next(context.Context) bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeNeo4jResult) Record() neo4jRecord {
	return fakeNeo4jRecord(r.rows[r.pos-1])
}

func (r *fakeNeo4jResult) Err() error { return nil }

func (r *fakeNeo4jResult) Close(context.Context) error { return nil }

type fakeNeo4jRecord map[string]any

func (r fakeNeo4jRecord) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

func TestNeo4jStoreUpsertMirrorsGroups(t *testing.T) {
	session := &fakeNeo4jSession{}
	driver := &fakeNeo4jDriver{session: session}
	base := NewInMemoryStore()

	s, err := NewNeo4jStore(base, driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore returned error: %v", err)
	}

	ctx := context.Background()
	err = s.Upsert(ctx, []model.GroupDoc{
		{GroupID: "shirts", Content: "clothing tools", Rank: 0, Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	count, err := base.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected base store to hold the doc, count=%d err=%v", count, err)
	}
	if len(session.calls) != 1 {
		t.Fatalf("expected one MERGE per doc, got %d calls", len(session.calls))
	}
	if session.calls[0].params["id"] != "shirts" {
		t.Fatalf("unexpected MERGE params: %#v", session.calls[0].params)
	}
}

func TestNeo4jStoreLinkGroupsPairs(t *testing.T) {
	session := &fakeNeo4jSession{}
	driver := &fakeNeo4jDriver{session: session}

	s, err := NewNeo4jStore(NewInMemoryStore(), driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore returned error: %v", err)
	}

	err = s.LinkGroups(context.Background(), "shop-plugin", []string{"orders", "products", "payments"})
	if err != nil {
		t.Fatalf("LinkGroups returned error: %v", err)
	}
	// 3 groups pair up into 3 edges.
	if len(session.calls) != 3 {
		t.Fatalf("expected 3 edge MERGEs, got %d", len(session.calls))
	}
	for _, call := range session.calls {
		if call.params["source"] != "shop-plugin" {
			t.Fatalf("expected source on every edge, got %#v", call.params)
		}
	}
}

func TestNeo4jStoreLinkGroupsSingleIsNoop(t *testing.T) {
	session := &fakeNeo4jSession{}
	driver := &fakeNeo4jDriver{session: session}

	s, err := NewNeo4jStore(NewInMemoryStore(), driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore returned error: %v", err)
	}
	if err := s.LinkGroups(context.Background(), "solo", []string{"only"}); err != nil {
		t.Fatalf("LinkGroups returned error: %v", err)
	}
	if len(session.calls) != 0 {
		t.Fatalf("expected no calls for a single group, got %d", len(session.calls))
	}
}

func TestNeo4jStoreRelatedGroups(t *testing.T) {
	session := &fakeNeo4jSession{
		results: map[string][]map[string]any{
			"RETURN DISTINCT other.id": {
				{"id": "products", "rank": int64(1)},
				{"id": "payments", "rank": int64(2)},
			},
		},
	}
	driver := &fakeNeo4jDriver{session: session}

	s, err := NewNeo4jStore(NewInMemoryStore(), driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore returned error: %v", err)
	}

	ids, err := s.RelatedGroups(context.Background(), "orders", 5)
	if err != nil {
		t.Fatalf("RelatedGroups returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "products" || ids[1] != "payments" {
		t.Fatalf("unexpected related groups: %v", ids)
	}
}

func TestNeo4jStoreDelegatesSearch(t *testing.T) {
	base := NewInMemoryStore()
	ctx := context.Background()
	if err := base.Upsert(ctx, []model.GroupDoc{{GroupID: "a", Rank: 0, Embedding: []float32{1, 0}}}); err != nil {
		t.Fatalf("seed base store: %v", err)
	}

	s, err := NewNeo4jStore(base, &fakeNeo4jDriver{session: &fakeNeo4jSession{}}, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore returned error: %v", err)
	}
	docs, err := s.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(docs) != 1 || docs[0].GroupID != "a" {
		t.Fatalf("expected delegated search to return the seeded doc, got %#v", docs)
	}
}
