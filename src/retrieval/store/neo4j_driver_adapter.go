//go:build neo4j

package store

import (
	"context"

	neo4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// WrapNeo4jDriver adapts the official Neo4j Go driver for NewNeo4jStore.
// Guarded by the neo4j build tag so default builds skip the bolt stack.
func WrapNeo4jDriver(driver neo4j.DriverWithContext) neo4jDriver {
	if driver == nil {
		return nil
	}
	return boltDriver{driver}
}

type boltDriver struct {
	d neo4j.DriverWithContext
}

func (b boltDriver) NewSession(ctx context.Context, config Neo4jSessionConfig) (neo4jSession, error) {
	cfg := neo4j.SessionConfig{DatabaseName: config.DatabaseName}
	if config.AccessMode == AccessModeRead {
		cfg.AccessMode = neo4j.AccessModeRead
	} else {
		cfg.AccessMode = neo4j.AccessModeWrite
	}
	return boltSession{b.d.NewSession(ctx, cfg)}, nil
}

func (b boltDriver) Close(ctx context.Context) error { return b.d.Close(ctx) }

type boltSession struct {
	s neo4j.SessionWithContext
}

func (b boltSession) Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error) {
	res, err := b.s.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return &boltResult{r: res}, nil
}

func (b boltSession) Close(ctx context.Context) error { return b.s.Close(ctx) }

type boltResult struct {
	r neo4j.ResultWithContext
}

func (b *boltResult) Next(ctx context.Context) bool { return b.r.Next(ctx) }

func (b *boltResult) Record() neo4jRecord {
	rec := b.r.Record()
	if rec == nil {
		return nil
	}
	return boltRecord{rec}
}

func (b *boltResult) Err() error { return b.r.Err() }

// Close drains the result; v5 exposes Consume rather than a Close method.
func (b *boltResult) Close(ctx context.Context) error {
	_, err := b.r.Consume(ctx)
	return err
}

type boltRecord struct {
	rec *neo4j.Record
}

func (b boltRecord) Get(key string) (any, bool) {
	if b.rec == nil {
		return nil, false
	}
	return b.rec.Get(key)
}
