package embed

import (
	"context"
	"errors"
	"fmt"
	"os"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// VertexAIEmbedder embeds through the Gemini embedding models. It keeps two
// model handles so documents are encoded with the retrieval-document task
// type and queries with the retrieval-query one, which the model family is
// trained to distinguish.
type VertexAIEmbedder struct {
	client  *genai.Client
	query   *genai.EmbeddingModel
	passage *genai.EmbeddingModel
}

// NewVertexAIEmbedder requires GOOGLE_API_KEY or GEMINI_API_KEY. The model
// defaults to text-embedding-004.
func NewVertexAIEmbedder(model string) (Embedder, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = "text-embedding-004"
	}

	query := client.EmbeddingModel(model)
	query.TaskType = genai.TaskTypeRetrievalQuery
	passage := client.EmbeddingModel(model)
	passage.TaskType = genai.TaskTypeRetrievalDocument

	return &VertexAIEmbedder{client: client, query: query, passage: passage}, nil
}

func (e *VertexAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.query.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, ErrNotSupported
	}
	return resp.Embedding.Values, nil
}

func (e *VertexAIEmbedder) EmbedPassages(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	batch := e.passage.NewBatch()
	for _, doc := range docs {
		batch.AddContent(genai.Text(doc))
	}
	resp, err := e.passage.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(docs) {
		return nil, fmt.Errorf("gemini batch embed: got %d vectors for %d documents", lenContentEmbeddings(resp), len(docs))
	}
	vecs := make([][]float32, len(docs))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, ErrNotSupported
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}

func lenContentEmbeddings(resp *genai.BatchEmbedContentsResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}
