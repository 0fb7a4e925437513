package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

// Neo4jAccessMode controls whether a session is opened for read or write operations.
type Neo4jAccessMode string

const (
	// AccessModeWrite opens a session with write access.
	AccessModeWrite Neo4jAccessMode = "write"
	// AccessModeRead opens a session with read access.
	AccessModeRead Neo4jAccessMode = "read"
)

// Neo4jSessionConfig mirrors the minimal subset of Neo4j session configuration we require.
type Neo4jSessionConfig struct {
	AccessMode   Neo4jAccessMode
	DatabaseName string
}

// neo4jDriver abstracts the Neo4j driver capabilities used by the store. This
// allows tests to provide lightweight fakes without depending on the real
// driver package (which is guarded behind an optional build tag).
type neo4jDriver interface {
	NewSession(ctx context.Context, config Neo4jSessionConfig) (neo4jSession, error)
	Close(ctx context.Context) error
}

type neo4jSession interface {
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Close(ctx context.Context) error
}

type neo4jResult interface {
	Next(ctx context.Context) bool
	Record() neo4jRecord
	Err() error
	Close(ctx context.Context) error
}

type neo4jRecord interface {
	Get(key string) (any, bool)
}

// Neo4jStore composes a VectorStore with a Neo4j-backed provider graph.
//
// Vector similarity stays delegated to the base store, while "which groups
// come from the same provider" lives in Neo4j and powers sibling-group
// expansion at query time.
type Neo4jStore struct {
	base     VectorStore
	driver   neo4jDriver
	database string
}

var (
	_ VectorStore = (*Neo4jStore)(nil)
	_ GraphStore  = (*Neo4jStore)(nil)
)

// ErrNeo4jUnavailable is returned when graph operations are attempted without a configured driver.
var ErrNeo4jUnavailable = errors.New("neo4j driver not configured")

// NewNeo4jStore constructs a store that delegates vector operations to base
// and uses the provided Neo4j driver for graph persistence.
func NewNeo4jStore(base VectorStore, driver neo4jDriver, database string) (*Neo4jStore, error) {
	if base == nil {
		return nil, errors.New("base vector store is nil")
	}
	if driver == nil {
		return nil, errors.New("neo4j driver is nil")
	}
	return &Neo4jStore{base: base, driver: driver, database: database}, nil
}

// Upsert mirrors docs into the base store and refreshes the group nodes.
func (s *Neo4jStore) Upsert(ctx context.Context, docs []model.GroupDoc) error {
	if err := s.base.Upsert(ctx, docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	for _, doc := range docs {
		res, runErr := session.Run(ctx, `
                        MERGE (g:ToolGroup {id: $id})
                        SET g.content = $content, g.rank = $rank, g.indexed_at = $indexed_at
                `, map[string]any{
			"id":         doc.GroupID,
			"content":    doc.Content,
			"rank":       doc.Rank,
			"indexed_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if runErr != nil {
			return fmt.Errorf("neo4j upsert group: %w", runErr)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	return nil
}

// Search forwards the call to the underlying vector store.
func (s *Neo4jStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	return s.base.Search(ctx, queryEmbedding, limit)
}

// Count forwards the call to the underlying vector store.
func (s *Neo4jStore) Count(ctx context.Context) (int, error) {
	return s.base.Count(ctx)
}

// Reset clears the base store and detaches every group node.
func (s *Neo4jStore) Reset(ctx context.Context) error {
	if err := s.base.Reset(ctx); err != nil {
		return err
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, runErr := session.Run(ctx, `MATCH (g:ToolGroup) DETACH DELETE g`, nil)
	if runErr != nil {
		return fmt.Errorf("neo4j reset: %w", runErr)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	return nil
}

// LinkGroups records that the given groups share a provider, creating
// SHARES_SOURCE edges between each pair.
func (s *Neo4jStore) LinkGroups(ctx context.Context, source string, groupIDs []string) error {
	if s.driver == nil {
		return ErrNeo4jUnavailable
	}
	if len(groupIDs) < 2 {
		return nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	for i, from := range groupIDs {
		for _, to := range groupIDs[i+1:] {
			res, runErr := session.Run(ctx, `
                                MERGE (a:ToolGroup {id: $from})
                                MERGE (b:ToolGroup {id: $to})
                                MERGE (a)-[r:SHARES_SOURCE]-(b)
                                SET r.source = $source
                        `, map[string]any{"from": from, "to": to, "source": source})
			if runErr != nil {
				return fmt.Errorf("neo4j link groups: %w", runErr)
			}
			if res != nil {
				_ = res.Close(ctx)
			}
		}
	}
	return nil
}

// RelatedGroups returns groups sharing a provider with groupID, nearest rank first.
func (s *Neo4jStore) RelatedGroups(ctx context.Context, groupID string, limit int) ([]string, error) {
	if s.driver == nil {
		return nil, ErrNeo4jUnavailable
	}
	if limit <= 0 {
		return nil, nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeRead, DatabaseName: s.database})
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, err := session.Run(ctx, `
                MATCH (g:ToolGroup {id: $id})-[:SHARES_SOURCE]-(other:ToolGroup)
                RETURN DISTINCT other.id AS id, other.rank AS rank
                ORDER BY rank ASC
                LIMIT $limit
        `, map[string]any{"id": groupID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("neo4j related groups: %w", err)
	}
	defer res.Close(ctx)

	var ids []string
	for res.Next(ctx) {
		rec := res.Record()
		if rec == nil {
			continue
		}
		if val, ok := rec.Get("id"); ok {
			if id, ok := val.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateSchema delegates to the base store if it exposes SchemaInitializer and
// ensures Neo4j graph constraints are present.
func (s *Neo4jStore) CreateSchema(ctx context.Context, schemaPath string) error {
	if initializer, ok := s.base.(SchemaInitializer); ok {
		if err := initializer.CreateSchema(ctx, schemaPath); err != nil {
			return err
		}
	}
	if s.driver == nil {
		return nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	queries := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (g:ToolGroup) REQUIRE g.id IS UNIQUE",
		"CREATE INDEX IF NOT EXISTS FOR (g:ToolGroup) ON (g.rank)",
	}
	for _, query := range queries {
		res, runErr := session.Run(ctx, query, nil)
		if runErr != nil {
			return fmt.Errorf("neo4j schema query: %w", runErr)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	return nil
}

// Close releases the Neo4j driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}
