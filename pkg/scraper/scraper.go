// Package scraper is the web search collaborator. It queries the
// DuckDuckGo lite HTML endpoint and parses result rows with goquery.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/logger"
)

// ErrThrottled is returned when the search endpoint answers 429.
var ErrThrottled = errors.New("scraper: search endpoint throttled the request")

const defaultEndpoint = "https://lite.duckduckgo.com/lite/"

type ScraperConfig struct {
	Endpoint  string
	RateLimit float64 // requests per second
	Timeout   time.Duration
	UserAgent string
	Logger    *logrus.Entry
}

type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1 // 1 request per second by default
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	if _, err := url.ParseRequestURI(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     logger.Or(config.Logger, "scraper"),
	}, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

// Search returns up to count results for query. locale is a language hint
// such as "ko", "en" or "zh".
func (s *Scraper) Search(ctx context.Context, query string, count int, locale string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)
	if region := regionFor(locale); region != "" {
		form.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrThrottled
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for query %q", resp.StatusCode, query)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := parseResults(doc, count)
	s.log.WithFields(logrus.Fields{
		"query":   query,
		"locale":  locale,
		"results": len(results),
	}).Debug("search completed")

	return results, nil
}

// parseResults walks the lite layout, where each hit is a row holding an
// a.result-link followed by rows with td.result-snippet.
func parseResults(doc *goquery.Document, count int) []models.SearchResult {
	var results []models.SearchResult

	doc.Find("a.result-link").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveLink(href)
		title := cleanContent(link.Text())
		if target == "" || title == "" {
			return true
		}

		snippet := ""
		row := link.Closest("tr")
		for next := row.Next(); next.Length() > 0; next = next.Next() {
			if next.Find("a.result-link").Length() > 0 {
				break
			}
			if cell := next.Find("td.result-snippet"); cell.Length() > 0 {
				snippet = cleanContent(cell.Text())
				break
			}
		}

		results = append(results, models.SearchResult{
			Title:   title,
			Snippet: snippet,
			Link:    target,
		})
		return count <= 0 || len(results) < count
	})

	return results
}

// resolveLink unwraps DuckDuckGo redirect links to the target URL.
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(parsed.Host, "duckduckgo.com") {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if !parsed.IsAbs() {
		return ""
	}
	return parsed.String()
}

func cleanContent(content string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(content), " "))
}

func regionFor(locale string) string {
	switch strings.ToLower(locale) {
	case "ko", "kr":
		return "kr-kr"
	case "zh", "cn":
		return "cn-zh"
	case "en", "us":
		return "us-en"
	}
	return ""
}
