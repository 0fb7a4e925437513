package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Protocol-Lattice/go-reagent/src/retrieval/model"
)

// MongoStore implements VectorStore on a MongoDB collection. Similarity search
// uses Atlas $vectorSearch when available and falls back to a client-side scan
// against plain deployments.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (ms *MongoStore) Upsert(ctx context.Context, docs []model.GroupDoc) error {
	if ms == nil || ms.collection == nil || len(docs) == 0 {
		return nil
	}
	opts := options.Replace().SetUpsert(true)
	for _, doc := range docs {
		indexedAt := doc.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now().UTC()
		}
		record := bson.M{
			"_id":        doc.GroupID,
			"content":    doc.Content,
			"rank":       doc.Rank,
			"embedding":  float64Embedding(doc.Embedding),
			"indexed_at": indexedAt,
		}
		if _, err := ms.collection.ReplaceOne(ctx, bson.M{"_id": doc.GroupID}, record, opts); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MongoStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	if ms == nil || ms.collection == nil || limit <= 0 {
		return nil, nil
	}

	// Atlas vector search first; oversample candidates for better recall.
	pipeline := mongo.Pipeline{
		{
			{Key: "$vectorSearch", Value: bson.D{
				{Key: "index", Value: "vector_index"},
				{Key: "path", Value: "embedding"},
				{Key: "queryVector", Value: float64Embedding(queryEmbedding)},
				{Key: "numCandidates", Value: int64(limit * 10)},
				{Key: "limit", Value: int64(limit)},
			}},
		},
		{
			{Key: "$addFields", Value: bson.D{
				{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
			}},
		},
	}

	cursor, err := ms.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return ms.scanSearch(ctx, queryEmbedding, limit)
	}
	defer cursor.Close(ctx)

	var docs []model.GroupDoc
	for cursor.Next(ctx) {
		var doc struct {
			mongoGroupDocument `bson:",inline"`
			Score              float64 `bson:"score"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec := doc.toDoc()
		rec.Score = doc.Score
		docs = append(docs, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// scanSearch ranks every stored group client-side, for deployments without a
// vector search index.
func (ms *MongoStore) scanSearch(ctx context.Context, queryEmbedding []float32, limit int) ([]model.GroupDoc, error) {
	cursor, err := ms.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.GroupDoc
	for cursor.Next(ctx) {
		var doc mongoGroupDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec := doc.toDoc()
		rec.Score = model.CosineSimilarity(queryEmbedding, rec.Embedding)
		docs = append(docs, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Rank < docs[j].Rank
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (ms *MongoStore) Count(ctx context.Context) (int, error) {
	if ms == nil || ms.collection == nil {
		return 0, nil
	}
	count, err := ms.collection.CountDocuments(ctx, bson.M{})
	return int(count), err
}

func (ms *MongoStore) Reset(ctx context.Context) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	_, err := ms.collection.DeleteMany(ctx, bson.M{})
	return err
}

// CreateSchema ensures the collection has useful indexes.
func (ms *MongoStore) CreateSchema(ctx context.Context, _ string) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "rank", Value: 1}},
			Options: options.Index().SetName("rank"),
		},
		{
			Keys:    bson.D{{Key: "indexed_at", Value: -1}},
			Options: options.Index().SetName("indexed_at"),
		},
	}
	_, err := ms.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Close disconnects the underlying client.
func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mongoCloseTimeout)
		defer cancel()
	}
	return ms.client.Disconnect(ctx)
}

type mongoGroupDocument struct {
	GroupID   string    `bson:"_id"`
	Content   string    `bson:"content"`
	Rank      int       `bson:"rank"`
	Embedding []float64 `bson:"embedding"`
	IndexedAt time.Time `bson:"indexed_at"`
}

func (doc mongoGroupDocument) toDoc() model.GroupDoc {
	return model.GroupDoc{
		GroupID:   doc.GroupID,
		Content:   doc.Content,
		Rank:      doc.Rank,
		Embedding: float32Embedding(doc.Embedding),
		IndexedAt: doc.IndexedAt,
	}
}

func float64Embedding(vec []float32) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Embedding(vec []float64) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
