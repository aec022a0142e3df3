// Package enrichment wraps the web search backend with sub-query planning,
// deduplication, authority-first ordering and a freshness-bounded cache.
package enrichment

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/cache"
	"github.com/xhad/tradeqa/pkg/logger"
)

var errNoResults = errors.New("enrichment: no results")

// DefaultAuthoritativeDomains are registries and government sources that
// sort ahead of everything else.
var DefaultAuthoritativeDomains = []string{
	"qcc.com",
	"tianyancha.com",
	"gsxt.gov.cn",
	"kcs.go.kr",
	"customs.go.kr",
	"law.go.kr",
	"ktc.go.kr",
	"moef.go.kr",
	"wto.org",
}

type EnricherConfig struct {
	ResultsPerQuery      int
	PerCallTimeout       time.Duration
	OverallTimeout       time.Duration
	Freshness            time.Duration
	MaxEntries           int
	MaxResults           int
	AuthoritativeDomains []string
	Now                  func() time.Time
	Logger               *logrus.Entry
}

// SubQuery is one backend request derived from a user query.
type SubQuery struct {
	Text   string
	Locale string
}

type cacheKey struct {
	Query string
	Kind  models.EnrichmentKind
}

// Enricher implements types.Searcher.
type Enricher struct {
	config  EnricherConfig
	backend types.SearchBackend
	cache   *cache.Cache[cacheKey, []models.SearchResult]
	log     *logrus.Entry
}

var _ types.Searcher = (*Enricher)(nil)

// NewWithConfig returns an enricher over backend. A nil backend disables
// web search; Search then always returns nothing.
func NewWithConfig(backend types.SearchBackend, config EnricherConfig) *Enricher {
	if config.ResultsPerQuery <= 0 {
		config.ResultsPerQuery = 10
	}
	if config.PerCallTimeout <= 0 {
		config.PerCallTimeout = 20 * time.Second
	}
	if config.OverallTimeout <= 0 {
		config.OverallTimeout = 60 * time.Second
	}
	if config.Freshness <= 0 {
		config.Freshness = 6 * time.Hour
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 100
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 10
	}
	if len(config.AuthoritativeDomains) == 0 {
		config.AuthoritativeDomains = DefaultAuthoritativeDomains
	}

	return &Enricher{
		config:  config,
		backend: backend,
		cache: cache.New[cacheKey, []models.SearchResult](cache.Config{
			TTL:        config.Freshness,
			MaxEntries: config.MaxEntries,
			Now:        config.Now,
		}),
		log: logger.Or(config.Logger, "enrichment"),
	}
}

// Search returns normalized results for query, from cache while fresh.
// Backend failures yield an empty result; empty results are not cached.
func (e *Enricher) Search(ctx context.Context, query string, kind models.EnrichmentKind) []models.SearchResult {
	query = strings.TrimSpace(query)
	if e.backend == nil || query == "" {
		return nil
	}

	key := cacheKey{Query: query, Kind: kind}
	if cached, ok := e.cache.Get(key); ok {
		e.log.WithFields(logrus.Fields{"query": query, "kind": kind}).Debug("enrichment cache hit")
		return cached
	}

	results, err := e.cache.GetOrLoad(key, func() ([]models.SearchResult, error) {
		results := e.fetch(ctx, query, kind)
		if len(results) == 0 {
			return nil, errNoResults
		}
		return results, nil
	})
	if err != nil {
		return nil
	}
	return results
}

// Purge drops expired entries.
func (e *Enricher) Purge() int {
	return e.cache.Purge()
}

func (e *Enricher) fetch(ctx context.Context, query string, kind models.EnrichmentKind) []models.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, e.config.OverallTimeout)
	defer cancel()

	plan := SubQueries(query, kind)

	type answer struct {
		index   int
		results []models.SearchResult
	}
	answers := make(chan answer, len(plan))

	for i, sq := range plan {
		go func(i int, sq SubQuery) {
			callCtx, cancel := context.WithTimeout(ctx, e.config.PerCallTimeout)
			defer cancel()

			results, err := e.backend.Search(callCtx, sq.Text, e.config.ResultsPerQuery, sq.Locale)
			if err != nil {
				e.log.WithError(err).WithField("subquery", sq.Text).Warn("search sub-query failed")
				results = nil
			}
			answers <- answer{index: i, results: results}
		}(i, sq)
	}

	collected := make([][]models.SearchResult, len(plan))
	for received := 0; received < len(plan); received++ {
		select {
		case a := <-answers:
			collected[a.index] = a.results
		case <-ctx.Done():
			e.log.WithField("query", query).Warn("search overall timeout, keeping completed sub-queries")
			received = len(plan)
		}
	}

	var merged []models.SearchResult
	for _, results := range collected {
		merged = append(merged, results...)
	}

	return e.Normalize(merged)
}

// Normalize drops duplicates keeping the first occurrence, orders
// authoritative sources first and longer snippets next, and truncates to
// MaxResults. Results without a link are deduplicated by title and snippet.
func (e *Enricher) Normalize(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		key := dedupKey(r)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		ai, aj := e.authoritative(unique[i].Link), e.authoritative(unique[j].Link)
		if ai != aj {
			return ai
		}
		return utf8.RuneCountInString(unique[i].Snippet) > utf8.RuneCountInString(unique[j].Snippet)
	})

	if len(unique) > e.config.MaxResults {
		unique = unique[:e.config.MaxResults]
	}
	return unique
}

func dedupKey(r models.SearchResult) string {
	if link := strings.TrimSpace(r.Link); link != "" {
		return "link:" + link
	}
	title, snippet := strings.TrimSpace(r.Title), strings.TrimSpace(r.Snippet)
	if title == "" && snippet == "" {
		return ""
	}
	return "text:" + strings.ToLower(title) + "\x00" + strings.ToLower(snippet)
}

func (e *Enricher) authoritative(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range e.config.AuthoritativeDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// LimiterBudget is how long the plans for kinds take to clear a backend
// limited to ratePerSecond requests with a burst of one.
func LimiterBudget(ratePerSecond float64, kinds ...models.EnrichmentKind) time.Duration {
	if ratePerSecond <= 0 {
		return 0
	}
	n := 0
	for _, kind := range kinds {
		n += len(SubQueries("", kind))
	}
	if n <= 1 {
		return 0
	}
	return time.Duration(float64(n-1) / ratePerSecond * float64(time.Second))
}

// SubQueries plans the backend requests for a kind. Entity lookups target
// company registries; product lookups use specification phrasing in
// English, Korean and Chinese.
func SubQueries(query string, kind models.EnrichmentKind) []SubQuery {
	switch kind {
	case models.KindEntity:
		return []SubQuery{
			{Text: query + " site:qcc.com", Locale: "zh"},
			{Text: query + " site:tianyancha.com", Locale: "zh"},
			{Text: query + " 法定代表人 成立日期 注册资本", Locale: "zh"},
			{Text: query + " company profile", Locale: "en"},
		}
	case models.KindProduct:
		return []SubQuery{
			{Text: query + " specification", Locale: "en"},
			{Text: query + " 규격 사양", Locale: "ko"},
			{Text: query + " 规格 参数", Locale: "zh"},
		}
	case models.KindRelationship:
		return []SubQuery{
			{Text: query + " 股东 关联公司", Locale: "zh"},
			{Text: query + " shareholder affiliate subsidiary", Locale: "en"},
			{Text: query + " 주주 계열사", Locale: "ko"},
		}
	default:
		return []SubQuery{
			{Text: query, Locale: "ko"},
			{Text: query, Locale: "en"},
		}
	}
}
