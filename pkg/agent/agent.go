// Package agent answers a question from the point of view of one document.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/retriever"
	"github.com/xhad/tradeqa/pkg/tariff"
)

const (
	// CouldNotGenerate is the text of a failed partial response.
	CouldNotGenerate = "답변을 생성할 수 없습니다."
	// NoContent is the text of a partial response for an empty document.
	NoContent = "문서 내용이 없습니다."
)

var (
	summaryKeywords  = []string{"요약", "정리", "개요", "summary", "summarize", "summarise"}
	supplierKeywords = []string{"공급업체", "업체", "세율", "관세율", "얼마", "rate", "supplier"}
)

// Request is one question addressed to one document.
type Request struct {
	Document models.Document
	Question string
	History  []models.ConversationTurn
	// RelationHint optionally names a reference supplier the asked-about
	// supplier is related to.
	RelationHint string
}

type AgentConfig struct {
	SummaryChunkSize int
	// SummaryConcurrency caps the chunk summaries in flight for one document.
	SummaryConcurrency int
	Logger             *logrus.Entry
}

type Agent struct {
	config    AgentConfig
	indexes   *retriever.IndexCache
	generator llm.Generator
	table     tariff.Table
	splitter  textsplitter.RecursiveCharacter
	log       *logrus.Entry
}

func NewWithConfig(indexes *retriever.IndexCache, generator llm.Generator, table tariff.Table, config AgentConfig) *Agent {
	if config.SummaryChunkSize <= 0 {
		config.SummaryChunkSize = 3000
	}
	if config.SummaryConcurrency <= 0 {
		config.SummaryConcurrency = 4
	}
	if table == nil {
		table = tariff.DefaultTable
	}

	return &Agent{
		config:    config,
		indexes:   indexes,
		generator: generator,
		table:     table,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.SummaryChunkSize),
			textsplitter.WithChunkOverlap(0),
		),
		log: logger.Or(config.Logger, "agent"),
	}
}

// Respond retrieves from the document and generates one answer. The
// document's index is built on first use and reused afterwards.
func (a *Agent) Respond(ctx context.Context, req Request) models.PartialResponse {
	start := time.Now()
	doc := req.Document
	log := a.log.WithField("document", doc.Name)

	idx, err := a.indexes.Get(doc.Name, doc.Content)
	if err != nil {
		if errors.Is(err, retriever.ErrEmptyIndex) {
			log.Warn("document has no indexable content")
		} else {
			log.WithError(err).Warn("failed to index document")
		}
		return failed(doc.Name, NoContent)
	}

	var res llm.Result
	if hasAny(req.Question, summaryKeywords) {
		res = a.summarize(ctx, doc, req.Question)
	} else {
		retrieved := retriever.Join(a.indexes.Retriever().Search(idx, req.Question))

		var facts string
		if hasAny(req.Question, supplierKeywords) {
			facts = a.RateFacts(req.Question, req.RelationHint)
		}

		res = a.generator.Generate(ctx, expertPrompt(retrieved, facts, models.FormatHistory(req.History), req.Question))
	}

	log.WithFields(logrus.Fields{
		"elapsed": time.Since(start),
		"ok":      res.OK(),
	}).Debug("agent finished")

	if !res.OK() {
		return failed(doc.Name, CouldNotGenerate)
	}
	return models.PartialResponse{DocumentName: doc.Name, Text: res.Text}
}

// RateFacts describes the duty rates relevant to question: the lookup for
// a supplier named in it, or the related hint, followed by the full table.
func (a *Agent) RateFacts(question, relationHint string) string {
	var b strings.Builder

	res := a.table.RateFor(question, nil, relationHint)
	if res.EntityID != "" {
		entity, _ := a.table.Find(question)
		if res.SupplierType == tariff.SupplierRelated {
			entity, _ = a.table.Find(relationHint)
		}
		fmt.Fprintf(&b, "조회 결과: %s (%s) %.2f%%, 공급업체 유형 %s\n", entity.NameKO, entity.NameEN, res.Rate, res.SupplierType)
	}
	b.WriteString(a.table.Describe())
	return b.String()
}

// summarize summarizes each chunk independently, then merges the chunk
// summaries in a second pass.
func (a *Agent) summarize(ctx context.Context, doc models.Document, question string) llm.Result {
	chunks, err := a.splitter.SplitText(doc.Content)
	if err != nil || len(chunks) == 0 {
		return llm.Absent("failed to split document: %v", err)
	}

	summaries := make([]llm.Result, len(chunks))
	var g errgroup.Group
	g.SetLimit(a.config.SummaryConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			summaries[i] = a.generator.Generate(ctx, chunkSummaryPrompt(doc.Name, chunk))
			return nil
		})
	}
	g.Wait()

	var parts []string
	for _, s := range summaries {
		if s.OK() {
			parts = append(parts, s.Text)
		}
	}
	if len(parts) == 0 {
		return llm.Absent("no chunk summary was produced")
	}
	return a.generator.Generate(ctx, combineSummaryPrompt(doc.Name, parts, question))
}

func failed(name, text string) models.PartialResponse {
	return models.PartialResponse{DocumentName: name, Text: text, Failed: true}
}

func hasAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
