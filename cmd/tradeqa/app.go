package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
	cfgPkg "github.com/xhad/tradeqa/pkg/config"
	"github.com/xhad/tradeqa/pkg/agent"
	"github.com/xhad/tradeqa/pkg/corpus"
	"github.com/xhad/tradeqa/pkg/enrichment"
	"github.com/xhad/tradeqa/pkg/entity"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/orchestrator"
	"github.com/xhad/tradeqa/pkg/retriever"
	"github.com/xhad/tradeqa/pkg/router"
	"github.com/xhad/tradeqa/pkg/scraper"
	"github.com/xhad/tradeqa/pkg/session"
	"github.com/xhad/tradeqa/pkg/store"
	"github.com/xhad/tradeqa/pkg/tariff"
)

// relay forwards advisories to whichever notifier is attached, so the
// generation client can be built before the chat loop or server exists.
type relay struct {
	mu     sync.RWMutex
	target types.Notifier
}

func (r *relay) Attach(n types.Notifier) {
	r.mu.Lock()
	r.target = n
	r.mu.Unlock()
}

func (r *relay) Notify(message string) {
	r.mu.RLock()
	target := r.target
	r.mu.RUnlock()

	if target == nil {
		color.Red("%s", message)
		return
	}
	target.Notify(message)
}

// app holds the components shared by every session of one process.
type app struct {
	cfg       *cfgPkg.Config
	notifier  *relay
	generator *llm.Client
	catalog   *corpus.Catalog
	indexes   *retriever.IndexCache
	enricher  *enrichment.Enricher
	analyzer  *entity.Analyzer
	router    *router.Router
	agent     *agent.Agent
	store     *store.TranscriptStore
}

// newApp builds the search and analysis stack. The generation client and
// corpus are added by withGenerator and withCorpus for commands that need
// them.
func newApp(cfg *cfgPkg.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		notifier: &relay{},
		catalog:  corpus.DefaultCatalog(cfg.Corpus.DocsDir),
	}

	var backend types.SearchBackend
	if !cfg.Search.Disabled {
		s, err := scraper.NewWithConfig(scraper.ScraperConfig{
			RateLimit: cfg.Search.RateLimit,
			Timeout:   cfg.Search.PerCallTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize search backend: %w", err)
		}
		backend = s
	}

	a.enricher = enrichment.NewWithConfig(backend, enrichment.EnricherConfig{
		ResultsPerQuery: cfg.Search.ResultsPerQuery,
		PerCallTimeout:  cfg.Search.PerCallTimeout,
		OverallTimeout:  cfg.Search.OverallTimeout,
		Freshness:       cfg.Search.Freshness,
		MaxEntries:      cfg.Search.MaxEntries,
		MaxResults:      cfg.Search.MaxResults,
	})

	a.analyzer = entity.NewWithConfig(a.enricher, entity.KeywordExtractor{}, tariff.DefaultTable, entity.AnalyzerConfig{
		Freshness:     cfg.Relationship.Freshness,
		MinConfidence: cfg.Relationship.MinConfidence,
	})

	a.indexes = retriever.NewIndexCache(retriever.NewWithConfig(retriever.RetrieverConfig{
		SegmentSize:      cfg.Retrieval.SegmentSize,
		MinSegmentLength: cfg.Retrieval.MinSegmentLength,
		TopK:             cfg.Retrieval.TopK,
		Threshold:        cfg.Retrieval.Threshold,
	}))

	return a, nil
}

// withGenerator connects the generation model. A missing credential is
// fatal before any question is handled.
func (a *app) withGenerator(ctx context.Context) error {
	client, err := llm.New(ctx, llm.ClientConfig{
		Provider:     a.cfg.LLM.Provider,
		APIKey:       a.cfg.LLM.APIKey,
		BaseURL:      a.cfg.LLM.BaseURL,
		Model:        a.cfg.LLM.Model,
		MaxTokens:    a.cfg.LLM.MaxTokens,
		Temperature:  a.cfg.LLM.Temperature,
		MaxAttempts:  a.cfg.LLM.MaxAttempts,
		RetryBackoff: a.cfg.LLM.RetryBackoff,
		Notifier:     a.notifier,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generation client: %w", err)
	}
	a.generator = client
	return nil
}

// withCorpus extracts every document and builds its index, showing
// progress. Missing documents are warned about and skipped.
func (a *app) withCorpus(ctx context.Context) {
	total := len(a.catalog.Documents())
	bar := getProgressBar(total, "📄 Loading documents...")

	loader := corpus.NewLoader(corpus.FileExtractor{}, corpus.LoaderConfig{
		OnProgress: func(doc models.Document, err error) {
			bar.Add(1)
		},
	})

	loaded, missing := loader.Load(ctx, a.catalog)
	bar.Finish()
	a.catalog = loaded

	docs := loaded.Documents()
	color.Green("\n✓ Loaded %d of %d documents\n", len(docs), total)
	if len(missing) > 0 {
		color.Yellow("⚠ Missing documents: %d\n", len(missing))
	}

	indexBar := getProgressBar(len(docs), "🔎 Indexing documents...")
	for _, doc := range docs {
		if _, err := a.indexes.Get(doc.Name, doc.Content); err != nil {
			logger.New("cli").WithError(err).Warn("document could not be indexed")
		}
		indexBar.Add(1)
	}
	indexBar.Finish()
	fmt.Println()

	a.router = router.NewWithConfig(a.catalog, a.generator, router.RouterConfig{})
	a.agent = agent.NewWithConfig(a.indexes, a.generator, tariff.DefaultTable, agent.AgentConfig{
		SummaryChunkSize: a.cfg.Retrieval.SummaryChunkSize,
	})
}

// withStore opens the transcript archive when a database is configured.
func (a *app) withStore(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		return nil
	}
	ts, err := store.NewWithConfig(ctx, store.TranscriptStoreConfig{
		ConnString: a.cfg.Database.URL,
		TableName:  a.cfg.Database.TableName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize transcript store: %w", err)
	}
	a.store = ts
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// newSession gives each conversation its own orchestrator, so follow-up
// timing is tracked per session while caches stay shared.
func (a *app) newSession() *session.Session {
	o := orchestrator.NewWithConfig(a.catalog, a.router, a.agent, a.generator, a.analyzer, orchestrator.OrchestratorConfig{
		FollowUpWindow:  a.cfg.Orchestrator.FollowUpWindow,
		FreshTimeout:    a.cfg.Orchestrator.FreshTimeout,
		FollowUpTimeout: a.cfg.Orchestrator.FollowUpTimeout,
		AgentTimeout:    a.cfg.Orchestrator.AgentTimeout,
		HintTimeout:     hintTimeout(a.cfg),
	})

	var recorder session.Recorder
	if a.store != nil {
		recorder = a.store
	}
	return session.NewWithConfig(o, session.SessionConfig{Recorder: recorder})
}

// hintTimeout leaves room for a supplier lookup's entity and relationship
// sub-queries to pass the search rate limiter, plus one round trip.
func hintTimeout(cfg *cfgPkg.Config) time.Duration {
	const floor = 5 * time.Second
	budget := enrichment.LimiterBudget(cfg.Search.RateLimit, models.KindEntity, models.KindRelationship) + 3*time.Second
	if budget < floor {
		return floor
	}
	return budget
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}
