package askinvoice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/askinvoice/internal/db/redis"
	"github.com/kailas-cloud/askinvoice/internal/domain"
	"github.com/kailas-cloud/askinvoice/internal/extractor"
	"github.com/kailas-cloud/askinvoice/internal/index"
	"github.com/kailas-cloud/askinvoice/internal/metrics"
	"github.com/kailas-cloud/askinvoice/internal/repository/docstore"
	"github.com/kailas-cloud/askinvoice/internal/repository/embcache"
	openaiProvider "github.com/kailas-cloud/askinvoice/internal/transport/openai"
	askuc "github.com/kailas-cloud/askinvoice/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/askinvoice/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/askinvoice/internal/usecase/ingest"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the askinvoice SDK entry point.
type Client struct {
	ingestSvc *ingestuc.Service
	askSvc    *askuc.Service
	healthSvc *healthuc.Service
	cache     *dbRedis.Store
}

// New creates a Client. At minimum an embedding and a completion provider
// must be configured, either together via WithOpenAI or separately via
// WithEmbedder and WithCompleter. The context is used for the optional
// cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dataDir: "data",
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.openai == nil && cfg.embedder == nil {
		return nil, errors.New("askinvoice: embedding provider required (use WithOpenAI or WithEmbedder)")
	}

	metrics.RegisterProviderMetrics()

	var (
		emb       domain.Embedder
		completer Completer
		meta      ingestuc.MetadataExtractor
		embHealth healthuc.EmbeddingChecker
	)

	if cfg.openai != nil {
		base := openaiProvider.NewEmbedder(&openaiProvider.Config{
			APIKey:     cfg.openai.APIKey,
			BaseURL:    cfg.openai.BaseURL,
			Model:      cfg.openai.EmbeddingModel,
			Dimensions: cfg.openai.Dimensions,
			Provider:   "openai",
			Logger:     cfg.logger,
		})
		emb = base
		embHealth = base

		llmCfg := &openaiProvider.CompleterConfig{
			APIKey:   cfg.openai.APIKey,
			BaseURL:  cfg.openai.BaseURL,
			Model:    cfg.openai.LLMModel,
			Provider: "openai",
			Logger:   cfg.logger,
		}
		completer = openaiProvider.NewCompleter(llmCfg)
		meta = openaiProvider.NewMetadataExtractor(llmCfg)
	}

	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
		embHealth = nil
	}
	if cfg.completer != nil {
		completer = cfg.completer
	}
	if completer == nil {
		return nil, errors.New("askinvoice: completion provider required (use WithOpenAI or WithCompleter)")
	}

	var cache *dbRedis.Store
	if cfg.cacheAddr != "" {
		var err error
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{cfg.cacheAddr},
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("askinvoice: create cache store: %w", err)
		}
		if err := cache.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			cache.Close()
			return nil, fmt.Errorf("askinvoice: cache not ready: %w", err)
		}
		emb = embcache.New(emb, cache, metrics.EmbeddingCacheTotal, cfg.logger)
	}

	var ext ingestuc.Extractor = extractor.NewPDF(cfg.logger)
	if cfg.extractor != nil {
		ext = &extractorAdapter{inner: cfg.extractor}
	}

	store, err := docstore.NewFS(filepath.Join(cfg.dataDir, "documents"))
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("askinvoice: open document store: %w", err)
	}
	idx, err := index.Load(filepath.Join(cfg.dataDir, "index.gob"))
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("askinvoice: load index: %w", err)
	}

	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}

	return &Client{
		ingestSvc: ingestuc.New(store, ext, emb, meta, idx, cfg.maxChunkSize, cfg.logger),
		askSvc:    askuc.New(emb, completer, idx, cfg.topK, cfg.logger),
		healthSvc: healthuc.New(cachePinger, embHealth),
		cache:     cache,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Ingest adds files to the knowledge base. Already-known names are skipped.
func (c *Client) Ingest(ctx context.Context, files []File) (IngestStatus, error) {
	in := make([]ingestuc.File, len(files))
	for i, f := range files {
		in[i] = ingestuc.File{Name: f.Name, Data: f.Data}
	}

	status, err := c.ingestSvc.Ingest(ctx, in)
	out := IngestStatus{
		Added:        status.Added,
		Skipped:      status.Skipped,
		Failed:       status.Failed,
		AddedFiles:   status.AddedFiles,
		SkippedFiles: status.SkippedFiles,
		FailedFiles:  status.FailedFiles,
	}
	if err != nil {
		return out, fmt.Errorf("ingest: %w", err)
	}
	return out, nil
}

// ListDocuments returns the names of all documents in the knowledge base.
func (c *Client) ListDocuments() ([]string, error) {
	names, err := c.ingestSvc.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return names, nil
}

// Ask answers one question against the knowledge base.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	ans, err := c.askSvc.Ask(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return Answer{
		Answer:  ans.Answer,
		Sources: ans.Sources,
		Kind:    ans.Kind,
	}, nil
}

// Clear wipes the knowledge base.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.ingestSvc.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Health checks the configured providers.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.healthSvc.Check(ctx)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthReport{
		Status: string(report.Status),
		Checks: checks,
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// extractorAdapter wraps the public Extractor to satisfy the ingestion contract.
type extractorAdapter struct {
	inner Extractor
}

func (a *extractorAdapter) Extract(name string, data []byte) (domain.Document, error) {
	pages, err := a.inner.Extract(name, data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract: %w", err)
	}
	return domain.Document{Name: name, Pages: pages}, nil
}
