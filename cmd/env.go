package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/northharbor/sage/internal/config"
	"github.com/northharbor/sage/internal/extract"
	"github.com/northharbor/sage/internal/interview"
	"github.com/northharbor/sage/internal/store"
	"github.com/northharbor/sage/pkg/anthropic"
)

// env holds the wired application graph shared by commands.
type env struct {
	Store   store.Store
	Manager *interview.Manager
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var (
		extractor  extract.Extractor
		summarizer extract.Summarizer
	)
	if cfg.Anthropic.Key != "" {
		llm := extract.NewLLMExtractor(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second,
			cfg.Anthropic.RequestsPerMinute,
		)
		extractor, summarizer = llm, llm
	} else {
		zap.L().Warn("no anthropic key configured, free-text extraction runs on deterministic fallbacks only")
		extractor = &extract.StubExtractor{}
		summarizer = &extract.StubSummarizer{}
	}

	router := extract.NewRouter(extractor, cfg.Interview.ConfidenceThreshold)
	engine := interview.NewEngine(st, router, summarizer, interview.Options{
		RetryConflict: cfg.Interview.ConflictRetry == "retry_once",
	})

	return &env{Store: st, Manager: interview.NewManager(engine)}, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory", "":
		return store.NewMemory(time.Duration(sc.SessionTTLMinutes) * time.Minute), nil
	case "sqlite":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
}
