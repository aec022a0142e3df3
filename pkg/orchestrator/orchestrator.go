// Package orchestrator drives a question through the fresh or follow-up
// path: a quick direct answer, or a prioritized fan-out over per-document
// agents under time budgets followed by synthesis.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/agent"
	"github.com/xhad/tradeqa/pkg/corpus"
	"github.com/xhad/tradeqa/pkg/entity"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/tariff"
)

type Path string

const (
	PathFresh    Path = "fresh"
	PathFollowUp Path = "followup"
)

// Outcome records how an answer was produced.
type Outcome string

const (
	OutcomeQuick     Outcome = "quick"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeEarlyStop Outcome = "early_stop"
	OutcomeComplete  Outcome = "complete"
	OutcomeDegraded  Outcome = "degraded"
	OutcomeFailed    Outcome = "failed"
)

// Responder answers one question for one document.
type Responder interface {
	Respond(ctx context.Context, req agent.Request) models.PartialResponse
}

// Router classifies and ranks categories.
type Router interface {
	Classify(ctx context.Context, question string) models.Category
	Rank(question string) []models.Category
}

// RelationHinter names the reference supplier related to a supplier.
type RelationHinter interface {
	RelatedTo(ctx context.Context, name string) string
}

type OrchestratorConfig struct {
	FollowUpWindow  time.Duration
	FreshTimeout    time.Duration
	FollowUpTimeout time.Duration
	AgentTimeout    time.Duration
	HintTimeout     time.Duration

	MinRelevantLength int
	RelevanceRatio    float64

	Now    func() time.Time
	Logger *logrus.Entry
}

// Answer is the final text of a question plus how it was reached.
type Answer struct {
	Text     string
	Path     Path
	Outcome  Outcome
	Category string
	Partials []models.PartialResponse
	Elapsed  time.Duration
}

type Orchestrator struct {
	config    OrchestratorConfig
	catalog   *corpus.Catalog
	router    Router
	responder Responder
	generator llm.Generator
	hinter    RelationHinter
	table     tariff.Table
	log       *logrus.Entry

	mu           sync.Mutex
	lastAnswered time.Time
}

// NewWithConfig wires the orchestrator. hinter may be nil.
func NewWithConfig(catalog *corpus.Catalog, router Router, responder Responder, generator llm.Generator, hinter RelationHinter, config OrchestratorConfig) *Orchestrator {
	if config.FollowUpWindow <= 0 {
		config.FollowUpWindow = 30 * time.Second
	}
	if config.FreshTimeout <= 0 {
		config.FreshTimeout = 10 * time.Second
	}
	if config.FollowUpTimeout <= 0 {
		config.FollowUpTimeout = 60 * time.Second
	}
	if config.AgentTimeout <= 0 {
		config.AgentTimeout = time.Second
	}
	if config.HintTimeout <= 0 {
		config.HintTimeout = 5 * time.Second
	}
	if config.MinRelevantLength <= 0 {
		config.MinRelevantLength = 100
	}
	if config.RelevanceRatio <= 0 {
		config.RelevanceRatio = 0.3
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Orchestrator{
		config:    config,
		catalog:   catalog,
		router:    router,
		responder: responder,
		generator: generator,
		hinter:    hinter,
		table:     tariff.DefaultTable,
		log:       logger.Or(config.Logger, "orchestrator"),
	}
}

// IsFollowUp reports whether a question asked now falls inside the
// follow-up window of the previous answer.
func (o *Orchestrator) IsFollowUp() bool {
	o.mu.Lock()
	last := o.lastAnswered
	o.mu.Unlock()

	if last.IsZero() {
		return false
	}
	return o.config.Now().Sub(last) < o.config.FollowUpWindow
}

// LastAnswered returns when the previous question finished.
func (o *Orchestrator) LastAnswered() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastAnswered
}

// Answer always returns non-empty text. The answered-at timestamp is
// updated on every path.
func (o *Orchestrator) Answer(ctx context.Context, question string, history []models.ConversationTurn) Answer {
	start := o.config.Now()
	defer o.markAnswered()

	var ans Answer
	if o.IsFollowUp() {
		o.log.Info("follow-up question, fanning out")
		ans = o.followUp(ctx, question, history)
	} else {
		o.log.Info("fresh question, quick answer")
		ans = o.fresh(ctx, question, history)
	}

	if ans.Text == "" {
		ans.Text = CouldNotGenerateMessage
		ans.Outcome = OutcomeFailed
	}
	ans.Elapsed = o.config.Now().Sub(start)
	return ans
}

func (o *Orchestrator) markAnswered() {
	o.mu.Lock()
	o.lastAnswered = o.config.Now()
	o.mu.Unlock()
}

func (o *Orchestrator) fresh(ctx context.Context, question string, history []models.ConversationTurn) Answer {
	text, outcome := o.quickResponse(ctx, question, history)
	return Answer{Text: text, Path: PathFresh, Outcome: outcome}
}

// quickResponse is one direct generation under the fresh budget.
func (o *Orchestrator) quickResponse(ctx context.Context, question string, history []models.ConversationTurn) (string, Outcome) {
	ctx, cancel := context.WithTimeout(ctx, o.config.FreshTimeout)
	defer cancel()

	res, timedOut := o.generateWithin(ctx, quickPrompt(models.FormatHistory(history), question))
	switch {
	case timedOut:
		o.log.Warn("quick response timed out")
		return TimeoutMessage, OutcomeTimeout
	case !res.OK():
		return CouldNotGenerateMessage, OutcomeFailed
	}
	return res.Text, OutcomeQuick
}

func (o *Orchestrator) followUp(parent context.Context, question string, history []models.ConversationTurn) Answer {
	ctx, cancel := context.WithTimeout(parent, o.config.FollowUpTimeout)
	defer cancel()

	classified := o.router.Classify(ctx, question)
	ans := Answer{Path: PathFollowUp, Category: classified.Name}

	base := agent.Request{
		Question:     question,
		History:      history,
		RelationHint: o.relationHint(ctx, question),
	}

	attempted := make(map[string]bool)
	found := false
	for _, cat := range o.prioritize(question, classified) {
		if ctx.Err() != nil {
			break
		}
		attempted[cat.Name] = true

		got, relevant := o.fanOut(ctx, cat, base, true)
		ans.Partials = append(ans.Partials, got...)
		if relevant {
			found = true
			o.log.WithField("category", cat.Name).Info("relevant answer found, stopping fan-out")
			break
		}
	}

	if !found {
		for _, cat := range o.catalog.ByPriority() {
			if ctx.Err() != nil {
				break
			}
			if attempted[cat.Name] {
				continue
			}
			got, _ := o.fanOut(ctx, cat, base, false)
			ans.Partials = append(ans.Partials, got...)
		}
	}

	if ctx.Err() != nil {
		o.log.WithField("partials", len(ans.Partials)).Warn("follow-up budget exhausted")
		return o.degrade(parent, ans, question, history)
	}

	if len(ans.Partials) == 0 {
		ans.Text, ans.Outcome = o.quickResponse(parent, question, history)
		return ans
	}

	res, timedOut := o.generateWithin(ctx, synthesisPrompt(ans.Partials, models.FormatHistory(history), question))
	switch {
	case timedOut:
		o.log.Warn("synthesis ran past the follow-up budget")
		return o.degrade(parent, ans, question, history)
	case !res.OK():
		ans.Text, ans.Outcome = CouldNotGenerateMessage, OutcomeFailed
	default:
		ans.Text = res.Text
		ans.Outcome = OutcomeComplete
		if found {
			ans.Outcome = OutcomeEarlyStop
		}
	}
	return ans
}

// degrade answers from whatever partials exist after the budget ran out.
func (o *Orchestrator) degrade(parent context.Context, ans Answer, question string, history []models.ConversationTurn) Answer {
	if len(ans.Partials) > 0 {
		ans.Text = QuickSummary(ans.Partials, question)
		ans.Outcome = OutcomeDegraded
		return ans
	}
	ans.Text, ans.Outcome = o.quickResponse(parent, question, history)
	return ans
}

// prioritize merges the keyword ranking with the classified category and
// orders the result by priority.
func (o *Orchestrator) prioritize(question string, classified models.Category) []models.Category {
	ranked := o.router.Rank(question)

	present := false
	for _, cat := range ranked {
		if cat.Name == classified.Name {
			present = true
			break
		}
	}
	if !present && classified.Name != "" {
		if cat, ok := o.catalog.Category(classified.Name); ok {
			ranked = append(ranked, cat)
		}
	}

	out := make([]models.Category, 0, len(ranked))
	for _, cat := range ranked {
		// Documents come from the loaded catalog; the router may hold
		// categories from before loading.
		if loaded, ok := o.catalog.Category(cat.Name); ok {
			out = append(out, loaded)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

type agentResult struct {
	resp     models.PartialResponse
	finished bool
}

// fanOut runs every document agent of cat concurrently, each under the
// per-agent cap, and collects results as they complete. Agents past their
// cap are skipped and failed responses are dropped. With earlyStop set the
// first relevant response cancels the rest; partials already collected
// are kept.
func (o *Orchestrator) fanOut(ctx context.Context, cat models.Category, base agent.Request, earlyStop bool) ([]models.PartialResponse, bool) {
	if len(cat.Documents) == 0 {
		return nil, false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan agentResult, len(cat.Documents))
	for _, doc := range cat.Documents {
		req := base
		req.Document = doc
		go func() {
			results <- o.runAgent(ctx, req)
		}()
	}

	var got []models.PartialResponse
	for i := 0; i < len(cat.Documents); i++ {
		select {
		case r := <-results:
			log := o.log.WithField("document", r.resp.DocumentName)
			if !r.finished {
				log.Debug("agent exceeded its time cap, skipped")
				continue
			}
			if r.resp.Failed {
				log.Debug("agent produced no answer")
				continue
			}
			got = append(got, r.resp)
			if earlyStop && o.IsRelevant(r.resp.Text, base.Question) {
				return got, true
			}
		case <-ctx.Done():
			return got, false
		}
	}
	return got, false
}

func (o *Orchestrator) runAgent(ctx context.Context, req agent.Request) agentResult {
	ctx, cancel := context.WithTimeout(ctx, o.config.AgentTimeout)
	defer cancel()

	done := make(chan models.PartialResponse, 1)
	go func() {
		done <- o.responder.Respond(ctx, req)
	}()

	select {
	case resp := <-done:
		return agentResult{resp: resp, finished: true}
	case <-ctx.Done():
		return agentResult{resp: models.PartialResponse{DocumentName: req.Document.Name}}
	}
}

// relationHint looks up how the first unknown supplier named in the
// question relates to the reference suppliers.
func (o *Orchestrator) relationHint(ctx context.Context, question string) string {
	if o.hinter == nil {
		return ""
	}

	for _, name := range entity.SupplierNames(question) {
		if _, known := o.table.Find(name); known {
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, o.config.HintTimeout)
		hint := o.hinter.RelatedTo(hctx, name)
		cancel()

		if hint != "" {
			o.log.WithFields(logrus.Fields{"supplier": name, "related_to": hint}).Info("supplier relation found")
			return hint
		}
	}
	return ""
}

// generateWithin runs one generation and gives up when ctx ends, even if
// the generator does not observe ctx.
func (o *Orchestrator) generateWithin(ctx context.Context, prompt string) (llm.Result, bool) {
	done := make(chan llm.Result, 1)
	go func() {
		done <- o.generator.Generate(ctx, prompt)
	}()

	select {
	case res := <-done:
		if !res.OK() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, true
		}
		return res, false
	case <-ctx.Done():
		return llm.Result{}, errors.Is(ctx.Err(), context.DeadlineExceeded)
	}
}
