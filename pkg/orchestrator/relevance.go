package orchestrator

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/processor"
)

// questionTokens returns the distinct lowercase tokens of question longer
// than one character.
func questionTokens(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]bool, len(fields))
	var tokens []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 && !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Overlap is the share of the question's distinct tokens that occur in
// text, ignoring case. A question without tokens has no overlap.
func Overlap(text, question string) float64 {
	tokens := questionTokens(question)
	if len(tokens) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// IsRelevant reports whether a partial answer is long enough and covers
// enough of the question to stop fanning out.
func (o *Orchestrator) IsRelevant(text, question string) bool {
	if utf8.RuneCountInString(text) < o.config.MinRelevantLength {
		return false
	}
	return Overlap(text, question) >= o.config.RelevanceRatio
}

// QuickSummary builds the degraded answer: the two best partials by
// overlap and length, three sentences each, under a partial-answer notice.
func QuickSummary(partials []models.PartialResponse, question string) string {
	type scored struct {
		partial models.PartialResponse
		score   float64
	}

	ranked := make([]scored, 0, len(partials))
	for _, p := range partials {
		length := utf8.RuneCountInString(p.Text)
		if length > 1000 {
			length = 1000
		}
		ranked = append(ranked, scored{
			partial: p,
			score:   0.7*Overlap(p.Text, question) + 0.3*float64(length)/1000,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > 2 {
		ranked = ranked[:2]
	}

	var b strings.Builder
	b.WriteString(PartialDisclaimer)
	for _, r := range ranked {
		b.WriteString("\n\n### ")
		b.WriteString(r.partial.DocumentName)
		b.WriteString("\n")
		b.WriteString(processor.FirstSentences(r.partial.Text, 3))
	}
	return b.String()
}
