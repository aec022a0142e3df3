// Package router classifies questions into document categories and ranks
// categories for fan-out.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/corpus"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/logger"
)

// Marker precedes the category name in a classification response.
const Marker = "카테고리:"

type RouterConfig struct {
	DefaultCategory string
	Logger          *logrus.Entry
}

type Router struct {
	config    RouterConfig
	catalog   *corpus.Catalog
	generator llm.Generator
	log       *logrus.Entry
}

func NewWithConfig(catalog *corpus.Catalog, generator llm.Generator, config RouterConfig) *Router {
	if config.DefaultCategory == "" {
		config.DefaultCategory = corpus.DefaultCategory
	}
	return &Router{
		config:    config,
		catalog:   catalog,
		generator: generator,
		log:       logger.Or(config.Logger, "router"),
	}
}

// Classify asks the model for exactly one category. An absent response, a
// missing marker or an unknown label all fall back to the default category.
func (r *Router) Classify(ctx context.Context, question string) models.Category {
	if r.generator != nil {
		res := r.generator.Generate(ctx, ClassificationPrompt(question, r.catalog.Categories))
		if res.OK() {
			if name, ok := ParseCategory(res.Text, r.catalog.Names()); ok {
				cat, _ := r.catalog.Category(name)
				r.log.WithField("category", name).Debug("question classified")
				return cat
			}
			r.log.WithField("response", res.Text).Debug("unparseable classification, using default")
		}
	}
	return r.defaultCategory()
}

// Rank returns the categories whose keywords occur in question, in table
// order. With no keyword hit every category is returned by priority.
func (r *Router) Rank(question string) []models.Category {
	var matched []models.Category
	for _, cat := range r.catalog.Categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(question, kw) {
				matched = append(matched, cat)
				break
			}
		}
	}
	if len(matched) == 0 {
		return r.catalog.ByPriority()
	}
	return matched
}

func (r *Router) defaultCategory() models.Category {
	if cat, ok := r.catalog.Category(r.config.DefaultCategory); ok {
		return cat
	}
	if cats := r.catalog.ByPriority(); len(cats) > 0 {
		return cats[0]
	}
	return models.Category{Name: r.config.DefaultCategory}
}

// ParseCategory reads the label after Marker and returns the first known
// name, in enumeration order, that occurs in it.
func ParseCategory(response string, names []string) (string, bool) {
	idx := strings.Index(response, Marker)
	if idx < 0 {
		return "", false
	}
	label := strings.TrimSpace(response[idx+len(Marker):])

	for _, name := range names {
		if strings.Contains(label, name) {
			return name, true
		}
	}
	return "", false
}

// ClassificationPrompt asks for one category in the "카테고리: X" format.
func ClassificationPrompt(question string, categories []models.Category) string {
	var list strings.Builder
	for i, cat := range categories {
		fmt.Fprintf(&list, "%d. %s: %s\n", i+1, cat.Name, cat.Description)
	}

	example := corpus.DefaultCategory
	if len(categories) > 0 {
		example = categories[0].Name
	}

	return fmt.Sprintf(`
당신은 덤핑 관련 법령 전문가로서 사용자의 질문을 분석하여 가장 관련성 높은 법령 카테고리를 선택하는 업무를 담당합니다.

다음은 사용자의 질문입니다:
"%s"

아래 법령 카테고리 중에서 이 질문과 가장 관련성이 높은 카테고리 하나만 선택해주세요:

%s
반드시 위의 카테고리 중 하나만 선택하고, 다음 형식으로만 답변해주세요:
"%s [선택한 카테고리명]"

예를 들어, "%s %s"와 같이 답변해주세요.
`, question, list.String(), Marker, Marker, example)
}
