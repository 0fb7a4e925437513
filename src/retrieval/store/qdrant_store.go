package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

// Collections are always created with cosine distance; Search relies on the
// returned score being a cosine similarity.
const qdrantDistance = "Cosine"

// qdrantStatus supports both `status: "ok"` and `status: {"error":"..."}`.
type qdrantStatus struct {
	State string // "ok" or "error"
	Error string // non-empty if error
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Time   float64      `json:"time"`
	Result T            `json:"result"`
}

type qdrantPointResult struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  []float32       `json:"vector"`
}

type qdrantCountResult struct {
	Count int `json:"count"`
}

// QdrantStore implements VectorStore against Qdrant's REST API.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// NewQdrantStore creates a Qdrant-backed VectorStore implementation.
func NewQdrantStore(baseURL, collection, apiKey string) *QdrantStore {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// EnsureCollection creates the collection for vectors of the given width.
// Existing collections are left untouched.
func (qs *QdrantStore) EnsureCollection(ctx context.Context, dims int) error {
	if qs == nil {
		return errors.New("nil qdrant store")
	}
	if qs.collection == "" {
		return errors.New("qdrant collection is empty")
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dims,
			"distance": qdrantDistance,
		},
	}
	err := qs.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", url.PathEscape(qs.collection)), req, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}
	return err
}

// Upsert writes one point per group, keyed by the group's registration rank.
func (qs *QdrantStore) Upsert(ctx context.Context, docs []model.GroupDoc) error {
	if qs == nil {
		return errors.New("nil qdrant store")
	}
	if qs.collection == "" {
		return errors.New("qdrant collection is empty")
	}
	if len(docs) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		indexedAt := doc.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now().UTC()
		}
		points = append(points, map[string]any{
			"id":     doc.Rank,
			"vector": doc.Embedding,
			"payload": map[string]any{
				"group_id":   doc.GroupID,
				"content":    doc.Content,
				"rank":       doc.Rank,
				"indexed_at": indexedAt.Format(time.RFC3339Nano),
			},
		})
	}
	req := map[string]any{"points": points}
	var resp qdrantEnvelope[json.RawMessage]
	if err := qs.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(qs.collection)), req, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status.State, "ok") && resp.Status.Error != "" {
		return errors.New(resp.Status.Error)
	}
	return nil
}

// Search performs a similarity search. Qdrant returns cosine similarity
// directly for collections created with the Cosine distance.
func (qs *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	if qs == nil {
		return nil, errors.New("nil qdrant store")
	}
	if limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryEmbedding,
		"limit":        limit,
		"with_vector":  true,
		"with_payload": true,
	}
	var resp qdrantEnvelope[[]qdrantPointResult]
	if err := qs.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", url.PathEscape(qs.collection)), reqBody, &resp); err != nil {
		return nil, err
	}
	docs := make([]model.GroupDoc, 0, len(resp.Result))
	for _, point := range resp.Result {
		doc := model.GroupDoc{
			GroupID:   stringFromAny(point.Payload["group_id"]),
			Content:   stringFromAny(point.Payload["content"]),
			Rank:      intFromAny(point.Payload["rank"]),
			Embedding: point.Vector,
			Score:     point.Score,
		}
		if ts := stringFromAny(point.Payload["indexed_at"]); ts != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				doc.IndexedAt = parsed
			}
		}
		if doc.GroupID == "" {
			// Older points may predate payloads; fall back to the numeric id.
			if id, err := parseQdrantID(point.ID); err == nil {
				doc.Rank = int(id)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the total number of points in the collection.
func (qs *QdrantStore) Count(ctx context.Context) (int, error) {
	if qs == nil {
		return 0, nil
	}
	req := map[string]any{"exact": true}
	var resp qdrantEnvelope[qdrantCountResult]
	if err := qs.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", url.PathEscape(qs.collection)), req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Reset drops every point so a rebuild cannot leave stale groups behind.
func (qs *QdrantStore) Reset(ctx context.Context) error {
	if qs == nil {
		return nil
	}
	req := map[string]any{"filter": map[string]any{}}
	return qs.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(qs.collection)), req, nil)
}

func (qs *QdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	if qs == nil {
		return errors.New("nil qdrant store")
	}
	u := qs.baseURL + path

	var buf io.ReadWriter
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if qs.apiKey != "" {
		req.Header.Set("api-key", qs.apiKey)
	}
	resp, err := qs.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		var env qdrantEnvelope[json.RawMessage]
		if json.Unmarshal(payload, &env) == nil && env.Status.Error != "" {
			return fmt.Errorf("qdrant %s %s -> http %d: %s", method, u, resp.StatusCode, env.Status.Error)
		}
		return fmt.Errorf("qdrant %s %s -> http %d: %s",
			method, u, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return err
		}
	}
	return nil
}

func parseQdrantID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var idInt int64
	if err := json.Unmarshal(raw, &idInt); err == nil {
		return idInt, nil
	}
	var idStr string
	if err := json.Unmarshal(raw, &idStr); err == nil {
		if val, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			return val, nil
		}
	}
	return 0, errors.New("unrecognised qdrant id")
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
