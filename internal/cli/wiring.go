package cli

import (
	"fmt"
	"os"

	"github.com/phuslu/log"

	"ragquery/config"
	"ragquery/internal/adapter/analyzer"
	"ragquery/internal/adapter/cache"
	"ragquery/internal/adapter/chunker"
	"ragquery/internal/adapter/fs"
	"ragquery/internal/adapter/llm"
	"ragquery/internal/adapter/loader"
	"ragquery/internal/adapter/memstore"
	"ragquery/internal/adapter/retriever"
	"ragquery/internal/adapter/store"
	"ragquery/internal/adapter/synthesizer"
	"ragquery/internal/port"
	"ragquery/internal/usecase"
)

// openStore opens the configured chunk store backend under dir.
func openStore(dir string, cfg *config.Config) (port.ChunkStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memstore.NewMemoryStore(), nil
	case "bolt", "":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewBoltStore(config.StorePath(dir, cfg))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(config.StorePath(dir, cfg))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// newLLM creates the answer generator named by synthesis.provider.
func newLLM(cfg *config.Config) (port.LLM, error) {
	switch cfg.Synthesis.Provider {
	case "ollama", "":
		return llm.NewOllamaLLM(cfg.Synthesis.BaseURL, cfg.Synthesis.Model, cfg.SynthesisTimeout()), nil
	case "anthropic":
		a, err := llm.NewAnthropicLLM(os.Getenv(cfg.Synthesis.APIKeyEnv), cfg.Synthesis.Model)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "echo":
		return llm.NewEchoLLM(), nil
	default:
		return nil, fmt.Errorf("unsupported synthesis provider: %s", cfg.Synthesis.Provider)
	}
}

func newIngestUseCase(st port.ChunkStore, cfg *config.Config, logger *log.Logger) *usecase.IngestUseCase {
	tokenizer := analyzer.NewTokenizer()
	return usecase.NewIngestUseCase(
		st,
		fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes),
		loader.New(),
		chunker.NewLineChunker(cfg.Ingest.ChunkTokens, cfg.Ingest.ChunkOverlap, tokenizer),
		cfg.Ingest.BaseURL,
		logger,
	)
}

// queryService bundles the query pipeline with the store it reads. Writes
// must go through Store so cached evidence is invalidated.
type queryService struct {
	Store   port.ChunkStore
	Queries *usecase.QueryUseCase
	Cache   *cache.QueryCache
	closer  port.ChunkStore
}

func (s *queryService) Close() error {
	return s.closer.Close()
}

// newQueryService opens the store, loads the configured seed file and wires
// retriever, evidence cache and synthesizer into a query use case.
func newQueryService(dir string, cfg *config.Config, logger *log.Logger) (*queryService, error) {
	st, err := openStore(dir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	gen, err := newLLM(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create answer generator: %w", err)
	}

	svc := &queryService{Store: st, closer: st}

	var rtr port.Retriever = retriever.NewKeywordRetriever(st, logger)
	if cfg.Retrieve.CacheSize > 0 {
		svc.Cache = cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.CacheTTL())
		svc.Store = cache.NewInvalidatingStore(st, svc.Cache)
		rtr = cache.NewCachedRetriever(rtr, svc.Cache, st)
	}

	if cfg.Store.Seed != "" {
		if _, err := newIngestUseCase(svc.Store, cfg, logger).LoadSeed(cfg.Store.Seed); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to load seed: %w", err)
		}
	}

	svc.Queries = usecase.NewQueryUseCase(
		rtr,
		synthesizer.NewLLMSynthesizer(gen, logger),
		usecase.QueryOptions{
			DefaultMaxSources: cfg.Retrieve.DefaultMaxSources,
			DefaultMaxTokens:  cfg.Synthesis.MaxTokens,
			Temperature:       cfg.Synthesis.Temperature,
			SynthesisTimeout:  cfg.SynthesisTimeout(),
		},
		logger,
	)

	logger.Debug().
		Str("backend", cfg.Store.Backend).
		Str("provider", cfg.Synthesis.Provider).
		Str("model", gen.ModelName()).
		Bool("cache", svc.Cache != nil).
		Msg("query service ready")

	return svc, nil
}
