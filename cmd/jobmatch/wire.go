package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobmatch/internal/config"
	dbRedis "github.com/kailas-cloud/jobmatch/internal/db/redis"
	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/index"
	"github.com/kailas-cloud/jobmatch/internal/index/memory"
	"github.com/kailas-cloud/jobmatch/internal/metrics"
	corpusrepo "github.com/kailas-cloud/jobmatch/internal/repository/corpus"
	"github.com/kailas-cloud/jobmatch/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/jobmatch/internal/repository/search"
	classifierClient "github.com/kailas-cloud/jobmatch/internal/transport/classifier"
	openaiEmb "github.com/kailas-cloud/jobmatch/internal/transport/openai"
	classifyuc "github.com/kailas-cloud/jobmatch/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/jobmatch/internal/usecase/embedding"
	recommenduc "github.com/kailas-cloud/jobmatch/internal/usecase/recommend"
	rerankuc "github.com/kailas-cloud/jobmatch/internal/usecase/rerank"
	searchuc "github.com/kailas-cloud/jobmatch/internal/usecase/search"
)

// deps holds the dependencies shared by every subcommand.
type deps struct {
	cfg    config.Config
	logger *zap.Logger

	store    *dbRedis.Store
	corpus   *corpusrepo.Repo
	provider *openaiEmb.Embedder

	docEmbedder   embedder
	queryEmbedder embedder
}

// embedder is the decorated chain; every link supports batching.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// connect dials the database and assembles the embedder chains.
func connect(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:        cfg.Database.Addrs,
		Password:     cfg.Database.Password,
		WriteTimeout: time.Duration(cfg.Database.WriteTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		User:       app,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	d := &deps{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		corpus:   corpusrepo.New(store, corpusrepo.NewKeys(cfg.Storage.KeyPrefix)),
		provider: provider,
	}
	d.docEmbedder = buildEmbedder(cfg, provider, store, cfg.Embedding.DocumentInstruction, logger)
	d.queryEmbedder = buildEmbedder(cfg, provider, store, cfg.Embedding.QueryInstruction, logger)

	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)
	return d, nil
}

func (d *deps) Close() { d.store.Close() }

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented -> instruction.
// The instruction is outermost so cached vectors are keyed by the prefixed text.
func buildEmbedder(
	cfg config.Config, provider *openaiEmb.Embedder, store *dbRedis.Store,
	instruction string, logger *zap.Logger,
) embedder {
	var inner domain.Embedder = provider
	if cfg.Embedding.Cache.Enabled {
		inner = embcache.New(provider, store, embcache.Options{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Namespace: fmt.Sprintf("%s:%d", cfg.Embedding.Model, cfg.Embedding.Dimensions),
			TTL:       time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.MaxBatchSize, logger,
	)

	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}
	return instrumented
}

// httpClassifier returns the remote classifier when configured, else nil.
func (d *deps) httpClassifier() *classifierClient.Client {
	if d.cfg.Classifier.Type != config.ClassifierHTTP {
		return nil
	}
	return classifierClient.New(classifierClient.Config{
		BaseURL: d.cfg.Classifier.BaseURL,
		APIKey:  d.cfg.Classifier.APIKey,
		Timeout: time.Duration(d.cfg.Classifier.TimeoutMs) * time.Millisecond,
		Logger:  d.logger,
	})
}

// pipeline is the read side: the live corpus and the recommendation services.
type pipeline struct {
	holder    *index.Holder
	refresher *index.Refresher
	recommend *recommenduc.Service
	// classifierCheck is nil unless the classifier is a remote service.
	classifierCheck *classifierClient.Client
}

// buildPipeline wires retrieval, re-ranking and orchestration over a
// holder that starts unloaded.
func (d *deps) buildPipeline() (*pipeline, error) {
	cfg := d.cfg

	var loader index.Loader
	switch cfg.Index.Backend {
	case config.BackendRedis:
		loader = searchrepo.NewLoader(d.store, d.corpus, d.corpus.Keys())
	default:
		loader = memory.NewLoader(d.corpus)
	}
	// Served while nothing is published, whatever the backend.
	empty := memory.Empty().Indexes()

	holder := index.NewHolder(searchuc.Indexes{})
	refresher := index.NewRefresher(holder, d.corpus, loader, empty, cfg.Index.Backend, d.logger)

	searchParams := searchuc.Params{
		LexicalK:             cfg.Ranking.KLex,
		VectorK:              cfg.Ranking.KVec,
		PoolSize:             cfg.Ranking.PoolSize,
		Alpha:                *cfg.Ranking.Alpha,
		RetrievalTimeout:     cfg.Ranking.RetrievalTimeout(),
		LexicalQueryMaxChars: cfg.Ranking.LexicalQueryMaxChars,
	}
	if err := searchParams.Validate(); err != nil {
		return nil, fmt.Errorf("search params: %w", err)
	}

	rerankParams := rerankuc.Params{
		Beta:           *cfg.Ranking.Beta,
		MaxPerDomain:   cfg.Ranking.MaxPerDomain,
		Results:        cfg.Ranking.Results,
		MinDomainScore: cfg.Ranking.MinDomainScore,
		BonusMode:      rerankuc.BonusMode(cfg.Ranking.BonusMode),
	}
	if err := rerankParams.Validate(); err != nil {
		return nil, fmt.Errorf("rerank params: %w", err)
	}

	p := &pipeline{holder: holder, refresher: refresher}

	// A nil interface, not a typed nil pointer, selects degraded ranking.
	var classifier rerankuc.Classifier
	switch cfg.Classifier.Type {
	case config.ClassifierHTTP:
		p.classifierCheck = d.httpClassifier()
		classifier = p.classifierCheck
	case config.ClassifierCentroid:
		classifier = classifyuc.NewCentroid(
			d.queryEmbedder, d.corpus, holder, cfg.Classifier.Temperature, d.logger,
		)
	}
	d.logger.Info("Domain classifier configured", zap.String("type", cfg.Classifier.Type))

	p.recommend = recommenduc.New(
		d.queryEmbedder,
		searchuc.New(holder, searchParams),
		rerankuc.New(classifier, rerankParams),
		cfg.Ranking.MaxResumeBytes,
	)
	return p, nil
}
