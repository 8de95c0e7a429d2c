package cmd

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/adaptd/internal/config"
	"github.com/abhisek/adaptd/internal/diagnosis"
	"github.com/abhisek/adaptd/internal/engine"
	"github.com/abhisek/adaptd/internal/llm"
	"github.com/abhisek/adaptd/internal/logger"
	"github.com/abhisek/adaptd/internal/sink"
	"github.com/abhisek/adaptd/internal/store"
)

const classificationCacheTTL = 24 * time.Hour

// buildClassifier returns the rule classifier, or the LLM classifier backed
// by the rules when cfg asks for it and a provider can be built. LLM
// results are cached in Redis when rdb is set.
func buildClassifier(ctx context.Context, cfg config.Config, events llm.EventSink, rdb *redis.Client, log *logger.Logger) diagnosis.Classifier {
	rules := diagnosis.NewRuleClassifier()
	if cfg.Classifier != config.ClassifierLLM {
		return rules
	}

	if err := cfg.LLM.Validate(); err != nil {
		log.Warn("LLM classifier not configured, using rules", "error", err)
		return rules
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, log)
	if err != nil {
		log.Warn("LLM provider unavailable, using rules", "error", err)
		return rules
	}

	var cache diagnosis.Cache = diagnosis.NewMemoryCache(1024)
	if rdb != nil {
		cache = diagnosis.NewRedisCache(rdb, classificationCacheTTL)
	}
	llmClassifier := diagnosis.Cached(diagnosis.NewLLMClassifier(provider, diagnosis.DefaultLLMConfig()), cache)
	log.Info("LLM classifier enabled", "provider", cfg.LLM.Provider, "model", provider.ModelID())
	return diagnosis.Chain(llmClassifier, rules)
}

// buildEngine wires an engine over the SQLite store.
func buildEngine(cfg config.Config, st *store.Store, classifier diagnosis.Classifier, pub sink.Publisher, log *logger.Logger) (*engine.Engine, error) {
	g, err := cfg.Curriculum()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg.Engine, engine.Deps{
		Curriculum: g,
		Classifier: classifier,
		Log:        st.AttemptRepo(),
		Snapshots:  st.SnapshotRepo(),
		Events:     st.EventRepo(),
		Publisher:  pub,
		Logger:     log,
	})
}
