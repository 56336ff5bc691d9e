package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Yashshah0502/Expense-AI/internal/config"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
	"github.com/Yashshah0502/Expense-AI/internal/core/routing"
	"github.com/Yashshah0502/Expense-AI/internal/core/usecase"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/llm/gemini"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/llm/ollama"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/llm/openai"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/rerank/bge"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/resilience"
	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/store/postgres"
)

// App wires the answer pipeline once and hands the entrypoints their inbound
// services. The eval harness shares this wiring; it simply never calls the
// answer service.
type App struct {
	Config config.Config

	Store    *postgres.ChunkStore
	SearchUC ports.PolicySearcher
	AnswerUC ports.PolicyAnswerer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewChunkStore(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	embedder, generator, closeProvider, err := newProvider(ctx, cfg, executor)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	scorer := bge.NewScorer(cfg.RerankURL, cfg.RerankModel, executor)

	retriever := usecase.NewRetriever(store, embedder, seconds(cfg.SearchTimeoutSeconds), seconds(cfg.EmbedTimeoutSeconds))
	reranker := usecase.NewRerankStage(scorer, seconds(cfg.RerankTimeoutSeconds))
	synthesizer := usecase.NewSynthesizer(generator, seconds(cfg.GenerateTimeoutSeconds))

	return &App{
		Config:   cfg,
		Store:    store,
		SearchUC: usecase.NewSearchService(retriever, reranker, cfg.RAGCandidateK, cfg.RAGFinalK),
		AnswerUC: usecase.NewAnswerService(routing.NewRouter(), retriever, reranker, synthesizer, cfg.RAGCandidateK, cfg.RAGFinalK),
		closeFn: func() {
			closeProvider()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newProvider(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, func(), error) {
	noop := func() {}

	switch cfg.LLMProvider {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), noop, nil
	case "openai":
		client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel, executor)
		return openai.NewEmbedder(client), openai.NewGenerator(client), noop, nil
	case "gemini":
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiGenModel, cfg.GeminiEmbedModel, executor)
		if err != nil {
			return nil, nil, nil, err
		}
		return gemini.NewEmbedder(client), gemini.NewGenerator(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q (use ollama, openai or gemini)", cfg.LLMProvider)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
