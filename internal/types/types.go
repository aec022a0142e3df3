package types

import (
	"context"

	"github.com/xhad/tradeqa/internal/models"
)

// Core interfaces

// TextExtractor resolves a document locator to its raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, locator string) (string, error)
}

// SearchBackend is the external web search collaborator.
type SearchBackend interface {
	Search(ctx context.Context, query string, count int, locale string) ([]models.SearchResult, error)
}

// FieldExtractor turns search results into an entity profile. Implementations
// are free to be fuzzy; callers only rely on the populated fields.
type FieldExtractor interface {
	Extract(name string, results []models.SearchResult) models.EntityProfile
}

// Notifier receives user-visible advisories.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Searcher is implemented by the enrichment cache.
type Searcher interface {
	Search(ctx context.Context, query string, kind models.EnrichmentKind) []models.SearchResult
}
