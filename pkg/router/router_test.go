package router_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/corpus"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/router"
)

type stubGenerator struct {
	result llm.Result
	prompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) llm.Result {
	s.prompt = prompt
	return s.result
}

func names(cats []models.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

func TestClassify(t *testing.T) {
	catalog := corpus.DefaultCatalog("docs")

	tests := []struct {
		name   string
		result llm.Result
		want   string
	}{
		{"exact", llm.Result{Text: "카테고리: 덤핑판정"}, corpus.CategoryRuling},
		{"decorated label", llm.Result{Text: "분석 결과\n카테고리: [관련법령]"}, corpus.CategoryStatutes},
		{"missing marker", llm.Result{Text: "관련법령"}, corpus.CategoryDuty},
		{"unknown label", llm.Result{Text: "카테고리: 기타"}, corpus.CategoryDuty},
		{"absent", llm.Absent("rate limited"), corpus.CategoryDuty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{result: tt.result}
			r := router.NewWithConfig(catalog, gen, router.RouterConfig{})

			cat := r.Classify(context.Background(), "덤핑방지관세율이 얼마인가요?")
			assert.Equal(t, tt.want, cat.Name)
			assert.Contains(t, gen.prompt, "덤핑방지관세율이 얼마인가요?")
			assert.Contains(t, gen.prompt, router.Marker)
		})
	}
}

func TestClassify_NoGenerator(t *testing.T) {
	r := router.NewWithConfig(corpus.DefaultCatalog("docs"), nil, router.RouterConfig{})
	assert.Equal(t, corpus.CategoryDuty, r.Classify(context.Background(), "질문").Name)
}

func TestParseCategory_FirstInEnumerationOrder(t *testing.T) {
	name, ok := router.ParseCategory("카테고리: 덤핑판정 또는 덤핑방지관세", []string{"덤핑방지관세", "덤핑판정"})
	assert.True(t, ok)
	assert.Equal(t, "덤핑방지관세", name)
}

func TestRank(t *testing.T) {
	r := router.NewWithConfig(corpus.DefaultCatalog("docs"), nil, router.RouterConfig{})

	tests := []struct {
		question string
		want     []string
	}{
		{"덤핑마진은 어떻게 계산하나요?", []string{corpus.CategoryDuty}},
		{"최종판정과 관세법 시행령의 관계", []string{corpus.CategoryRuling, corpus.CategoryStatutes}},
		{"안녕하세요", []string{corpus.CategoryDuty, corpus.CategoryRuling, corpus.CategoryStatutes}},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, names(r.Rank(tt.question)))
		})
	}
}
