package corpus

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/logger"
)

type LoaderConfig struct {
	Concurrency int
	// OnProgress is called after each document is attempted.
	OnProgress func(doc models.Document, err error)
	Logger     *logrus.Entry
}

type Loader struct {
	config    LoaderConfig
	extractor types.TextExtractor
	log       *logrus.Entry
}

func NewLoader(extractor types.TextExtractor, config LoaderConfig) *Loader {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if extractor == nil {
		extractor = FileExtractor{}
	}
	return &Loader{
		config:    config,
		extractor: extractor,
		log:       logger.Or(config.Logger, "corpus"),
	}
}

// Load extracts every document of catalog concurrently. Documents that do
// not resolve are left out of the returned catalog and reported by locator
// in one warning. A category whose documents all failed stays in the
// catalog with no documents.
func (l *Loader) Load(ctx context.Context, catalog *Catalog) (*Catalog, []string) {
	docs := catalog.Documents()
	texts := make([]string, len(docs))
	failed := make([]bool, len(docs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			text, err := l.extractor.ExtractText(gctx, doc.Locator)
			texts[i], failed[i] = text, err != nil

			if l.config.OnProgress != nil {
				mu.Lock()
				l.config.OnProgress(doc, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var missing []string
	loaded := &Catalog{}
	i := 0
	for _, cat := range catalog.Categories {
		out := cat
		out.Documents = nil
		for _, doc := range cat.Documents {
			if failed[i] {
				missing = append(missing, doc.Locator)
			} else {
				doc.Content = texts[i]
				out.Documents = append(out.Documents, doc)
			}
			i++
		}
		loaded.Categories = append(loaded.Categories, out)
	}

	if len(missing) > 0 {
		l.log.WithField("missing", len(missing)).
			Warnf("다음 파일들을 찾을 수 없습니다: %s", strings.Join(missing, ", "))
	}
	l.log.WithField("documents", len(docs)-len(missing)).Info("corpus loaded")

	return loaded, missing
}
