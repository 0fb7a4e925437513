// Command reagent answers questions with a retrieval-gated tool loop: the
// catalog's groups are ranked against each query and only the winners' tools
// reach the model prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	reagent "github.com/Protocol-Lattice/go-reagent"
	"github.com/Protocol-Lattice/go-reagent/src/helpers"
	agentlog "github.com/Protocol-Lattice/go-reagent/src/log"
	"github.com/Protocol-Lattice/go-reagent/src/models"
	"github.com/Protocol-Lattice/go-reagent/src/plugins"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval/embed"
	"github.com/Protocol-Lattice/go-reagent/src/retrieval/store"
	"github.com/Protocol-Lattice/go-reagent/src/tools"
)

type storeFlags struct {
	backend          string
	qdrantURL        string
	qdrantCollection string
	postgresDSN      string
	mongoURI         string
	mongoDB          string
	mongoCollection  string
}

func main() {
	provider := flag.String("provider", "openai", "Model provider: openai, anthropic, gemini, or ollama")
	modelName := flag.String("model", "gpt-4o-mini", "Model identifier for the chosen provider")
	manifests := flag.String("plugins", "", "Comma separated ai-plugin.json manifest URLs to load as groups")
	topK := flag.Int("k", retrieval.DefaultLimit, "Groups retrieved per query")
	maxSteps := flag.Int("max-steps", reagent.DefaultMaxSteps, "Tool invocations allowed per question")
	strictTools := flag.Bool("strict-tools", false, "Abort a run when a tool fails instead of feeding the failure back")
	trace := flag.Bool("trace", false, "Print the action transcript after each answer")
	logLevel := flag.String("log-level", "info", "Log verbosity: debug, info, warn, or error")

	sf := storeFlags{}
	flag.StringVar(&sf.backend, "store", "memory", "Vector store backend: memory, qdrant, postgres, or mongo")
	flag.StringVar(&sf.qdrantURL, "qdrant-url", "http://localhost:6333", "Qdrant base URL when -store=qdrant")
	flag.StringVar(&sf.qdrantCollection, "qdrant-collection", "reagent_groups", "Qdrant collection when -store=qdrant")
	flag.StringVar(&sf.postgresDSN, "postgres-dsn", "", "Postgres connection string when -store=postgres")
	flag.StringVar(&sf.mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB URI when -store=mongo")
	flag.StringVar(&sf.mongoDB, "mongo-db", "reagent", "MongoDB database when -store=mongo")
	flag.StringVar(&sf.mongoCollection, "mongo-collection", "groups", "MongoDB collection when -store=mongo")
	flag.Parse()

	// .env keeps provider keys out of shell history.
	_ = godotenv.Load()
	agentlog.SetLevel(*logLevel)

	ctx := context.Background()

	model, err := models.NewProvider(ctx, *provider, *modelName)
	if err != nil {
		log.Fatalf("create model: %v", err)
	}
	model = models.TryCache(model)

	catalog, err := reagent.NewCatalog(tools.Echo(), tools.Calculator(), tools.Clock())
	if err != nil {
		log.Fatalf("register built-in groups: %v", err)
	}
	for _, manifestURL := range helpers.ParseCSVList(*manifests) {
		group, err := plugins.FromManifest(ctx, manifestURL)
		if err != nil {
			log.Fatalf("load plugin %s: %v", manifestURL, err)
		}
		if err := catalog.AddGroup(group); err != nil {
			log.Fatalf("register plugin %s: %v", manifestURL, err)
		}
	}

	backend, err := newStore(ctx, sf)
	if err != nil {
		log.Fatalf("create vector store: %v", err)
	}
	index := retrieval.New(
		retrieval.WithEmbedder(embed.Auto()),
		retrieval.WithStore(backend),
		retrieval.WithDefaultLimit(*topK),
	)
	if err := index.Build(ctx, catalog.Docs()); err != nil {
		log.Fatalf("build retrieval index: %v", err)
	}

	loop, err := reagent.New(reagent.Options{
		Model:            model,
		Retriever:        &reagent.IndexRetriever{Catalog: catalog, Index: index, Limit: *topK},
		MaxSteps:         *maxSteps,
		AbortOnToolError: *strictTools,
	})
	if err != nil {
		log.Fatalf("create loop: %v", err)
	}

	fmt.Printf("Groups: %s\n", helpers.GroupNames(catalog.Groups()))
	fmt.Println("Ask a question and press enter (empty line exits).")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return
			}
			log.Fatalf("read input: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			fmt.Println("Goodbye!")
			return
		}

		session := reagent.NewSession(line)
		answer, err := loop.Resume(ctx, session)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if *trace {
			printTranscript(session)
		}
		fmt.Println(answer)
	}
}

func newStore(ctx context.Context, sf storeFlags) (store.VectorStore, error) {
	switch sf.backend {
	case "memory":
		return store.NewInMemoryStore(), nil
	case "qdrant":
		return store.NewQdrantStore(sf.qdrantURL, sf.qdrantCollection, os.Getenv("QDRANT_API_KEY")), nil
	case "postgres":
		return store.NewPostgresStore(ctx, sf.postgresDSN)
	case "mongo":
		return store.NewMongoStore(ctx, sf.mongoURI, sf.mongoDB, sf.mongoCollection)
	default:
		return nil, fmt.Errorf("unknown store backend %q", sf.backend)
	}
}

func printTranscript(session *reagent.Session) {
	for i, entry := range session.Transcript {
		fmt.Printf("step %d: %s(%s)\n", i+1, entry.Action.Tool, entry.Action.Input)
		fmt.Printf("  observation: %s\n", entry.Observation)
	}
}
