package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/msanchezp/lexrag/internal/batch"
	"github.com/msanchezp/lexrag/internal/config"
	"github.com/msanchezp/lexrag/internal/core/ports"
	"github.com/msanchezp/lexrag/internal/core/usecase"
	"github.com/msanchezp/lexrag/internal/infrastructure/chunking"
	"github.com/msanchezp/lexrag/internal/infrastructure/corpus"
	"github.com/msanchezp/lexrag/internal/infrastructure/llm/ollama"
	"github.com/msanchezp/lexrag/internal/infrastructure/queue/nats"
	"github.com/msanchezp/lexrag/internal/infrastructure/repository/postgres"
	"github.com/msanchezp/lexrag/internal/infrastructure/reranker/tei"
	"github.com/msanchezp/lexrag/internal/infrastructure/resilience"
	"github.com/msanchezp/lexrag/internal/infrastructure/state"
	"github.com/msanchezp/lexrag/internal/infrastructure/vector/qdrant"
	"github.com/msanchezp/lexrag/internal/observability/logging"
	"github.com/msanchezp/lexrag/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	LawIndex *usecase.LawIndex
	Solver   ports.QuestionSolver
	Selector ports.OptionSelector
	Ingestor ports.CorpusIngestor
	Queue    *nats.Queue
	Batch    *batch.Runner
	Results  ports.ResultStore

	SolverMetrics *metrics.SolverMetrics
	IngestMetrics *metrics.IngestMetrics

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	log := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(log)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	store := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey, 30*time.Second, executor)
	llm := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.OllamaURL,
		EmbedModel:     cfg.OllamaEmbedModel,
		GenerateModel:  cfg.OllamaGenModel,
		EmbedRateLimit: cfg.OllamaEmbedRateLimit,
	}, executor)
	reranker := tei.NewClient(cfg.TEIRerankURL, 30*time.Second)

	catalog := corpus.NewCatalog(cfg.CorpusDir)
	corpusSrc := corpus.NewSource(cfg.CorpusDir, log)
	texts := corpus.NewFileTextSource(cfg.CorpusDir)

	index := usecase.NewLawIndex(catalog, llm)
	retriever := usecase.NewRetriever(store, llm, texts, usecase.FusionConfig{
		Enabled: cfg.UseBM25Fusion,
		RRFK:    cfg.RRFK,
		TopK:    cfg.FuseTopK,
	}, log)

	solverMetrics := metrics.NewSolverMetrics(service)
	solverCfg := usecase.DefaultSolverConfig()
	solverCfg.StrictCitation = cfg.StrictCitation
	solverCfg.Guard.Enabled = cfg.StrictLawGuard
	solverCfg.Guard.FallbackBest = cfg.GuardFallbackBest
	solverCfg.Quote.Adaptive = cfg.AdaptiveMinLen
	solverCfg.Quote.MinLenShort = cfg.MinLenShort
	solverCfg.Quote.MinLenLong = cfg.MinLenLong
	solverCfg.Quote.ShortSourceThreshold = cfg.ShortSourceChars
	solverCfg.ShortlistSize = cfg.ShortlistSize
	solverCfg.PerLawHits = cfg.PerLawHits
	solverCfg.PDFLimit = cfg.PDFLimit
	solver := usecase.NewSolver(index, retriever, reranker, llm, solverCfg, solverMetrics, log)

	passes := 1
	var rng *rand.Rand
	if cfg.AntiBiasMode && cfg.ValidationPasses > 1 {
		passes = cfg.ValidationPasses
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	selector := usecase.NewSelector(solver, passes, rng, log)

	ingestMetrics := metrics.NewIngestMetrics(service)
	ingestor := usecase.NewIngestor(
		store,
		llm,
		catalog,
		corpusSrc,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		state.NewStore(cfg.ManifestPath, cfg.CorpusDir),
		usecase.IngestorConfig{
			EmbedBatchSize: cfg.EmbedBatchSize,
			KeepVersions:   cfg.KeepVersions,
		},
		ingestMetrics,
		log,
	)

	queue, err := nats.Connect(cfg.NATSURL, executor, log)
	if err != nil {
		return nil, fmt.Errorf("init reindex queue: %w", err)
	}

	var results ports.ResultStore
	closeFn := func() { queue.Close() }
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			queue.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewResultsRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			queue.Close()
			db.Close()
			return nil, fmt.Errorf("ensure results schema: %w", err)
		}
		results = repo
		closeFn = func() {
			queue.Close()
			_ = db.Close()
		}
	}

	return &App{
		Config: cfg,
		Log:    log,

		LawIndex: index,
		Solver:   solver,
		Selector: selector,
		Ingestor: ingestor,
		Queue:    queue,
		Batch:    batch.NewRunner(selector, solver, results, log),
		Results:  results,

		SolverMetrics: solverMetrics,
		IngestMetrics: ingestMetrics,

		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
