package store

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

// PostgresStore implements VectorStore using Postgres + pgvector.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a pgvector-backed store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

// Upsert replaces the stored description for each group.
func (ps *PostgresStore) Upsert(ctx context.Context, docs []model.GroupDoc) error {
	if ps == nil || ps.DB == nil || len(docs) == 0 {
		return nil
	}
	tx, err := ps.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	for _, doc := range docs {
		_, err = tx.Exec(ctx, `
                INSERT INTO tool_groups (group_id, content, rank, embedding, indexed_at)
                VALUES ($1, $2, $3, $4::vector, NOW())
                ON CONFLICT (group_id) DO UPDATE
                SET content = EXCLUDED.content, rank = EXCLUDED.rank,
                    embedding = EXCLUDED.embedding, indexed_at = NOW()
        `, doc.GroupID, doc.Content, doc.Rank, formatVector(doc.Embedding))
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Search returns the closest groups by cosine distance.
func (ps *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	if ps == nil || ps.DB == nil || limit <= 0 {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `
        SELECT group_id, content, rank, embedding::text, indexed_at, (embedding <=> $1::vector) AS distance
        FROM tool_groups
        ORDER BY embedding <=> $1::vector, rank ASC
        LIMIT $2;
        `, formatVector(queryEmbedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.GroupDoc
	for rows.Next() {
		var doc model.GroupDoc
		var embeddingText string
		var distance float64
		if err := rows.Scan(&doc.GroupID, &doc.Content, &doc.Rank, &embeddingText, &doc.IndexedAt, &distance); err != nil {
			return nil, err
		}
		doc.Embedding = scanVector(embeddingText)
		doc.Score = 1 - distance
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	if ps == nil || ps.DB == nil {
		return 0, nil
	}
	var count int
	err := ps.DB.QueryRow(ctx, `SELECT COUNT(*) FROM tool_groups`).Scan(&count)
	return count, err
}

func (ps *PostgresStore) Reset(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	_, err := ps.DB.Exec(ctx, `TRUNCATE tool_groups`)
	return err
}

// CreateSchema ensures the pgvector extension and group table are available.
func (ps *PostgresStore) CreateSchema(ctx context.Context, schemaPath string) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	schema := defaultPostgresSchema
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schema = string(data)
	}

	if _, err := ps.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

const defaultPostgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS tool_groups (
    group_id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    rank INTEGER NOT NULL DEFAULT 0,
    embedding vector(768),
    indexed_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS tool_groups_embedding_idx ON tool_groups USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`

// formatVector renders a pgvector literal like "[0.5,1,-2.25]".
func formatVector(vec []float32) string {
	var b strings.Builder
	b.Grow(2 + 10*len(vec))
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// scanVector parses the text form pgvector yields for embedding::text.
// Malformed components are skipped rather than failing the whole row.
func scanVector(text string) []float32 {
	text = strings.Trim(strings.TrimSpace(text), "[]")
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}
