package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

func TestQdrantStatusUnmarshal(t *testing.T) {
	var ok qdrantStatus
	if err := json.Unmarshal([]byte(`"ok"`), &ok); err != nil {
		t.Fatalf("unmarshal string status: %v", err)
	}
	if ok.State != "ok" || ok.Error != "" {
		t.Fatalf("unexpected status: %#v", ok)
	}

	var failed qdrantStatus
	if err := json.Unmarshal([]byte(`{"error":"collection missing"}`), &failed); err != nil {
		t.Fatalf("unmarshal object status: %v", err)
	}
	if failed.State != "error" || failed.Error != "collection missing" {
		t.Fatalf("unexpected status: %#v", failed)
	}
}

func TestQdrantStoreRoundTrip(t *testing.T) {
	var upserted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/groups/points":
			var req struct {
				Points []map[string]any `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad upsert body: %v", err)
			}
			upserted = req.Points
			w.Write([]byte(`{"status":"ok","result":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/groups/points/search":
			w.Write([]byte(`{"status":"ok","result":[
                                {"id":1,"score":0.92,"vector":[1,0],"payload":{"group_id":"shirts","content":"clothing store tools","rank":1}},
                                {"id":0,"score":0.31,"vector":[0,1],"payload":{"group_id":"math","content":"arithmetic tools","rank":0}}
                        ]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/groups/points/count":
			w.Write([]byte(`{"status":"ok","result":{"count":2}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	qs := NewQdrantStore(srv.URL, "groups", "")
	ctx := context.Background()

	err := qs.Upsert(ctx, []model.GroupDoc{
		{GroupID: "math", Content: "arithmetic tools", Rank: 0, Embedding: []float32{0, 1}},
		{GroupID: "shirts", Content: "clothing store tools", Rank: 1, Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if len(upserted) != 2 {
		t.Fatalf("expected 2 points upserted, got %d", len(upserted))
	}

	docs, err := qs.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(docs))
	}
	if docs[0].GroupID != "shirts" || docs[0].Score != 0.92 || docs[0].Rank != 1 {
		t.Fatalf("unexpected first result: %#v", docs[0])
	}

	count, err := qs.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestQdrantStoreSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":{"error":"wrong vector size"}}`))
	}))
	defer srv.Close()

	qs := NewQdrantStore(srv.URL, "groups", "")
	_, err := qs.Search(context.Background(), []float32{1}, 3)
	if err == nil {
		t.Fatal("expected an error from a 400 response")
	}
}

func TestQdrantEnsureCollectionIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status":{"error":"collection groups already exists"}}`))
	}))
	defer srv.Close()

	qs := NewQdrantStore(srv.URL, "groups", "")
	if err := qs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("expected existing collection to be tolerated, got %v", err)
	}
}

func TestQdrantStoreSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","result":{"count":0}}`))
	}))
	defer srv.Close()

	qs := NewQdrantStore(srv.URL, "groups", "secret")
	if _, err := qs.Count(context.Background()); err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api-key header, got %q", gotKey)
	}
}
