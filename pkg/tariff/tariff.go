// Package tariff holds the anti-dumping duty reference table and the
// order-sensitive duty-rate lookup over it.
package tariff

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
)

const (
	// DefaultRate applies to suppliers not named in the table.
	DefaultRate = 7.61

	SupplierMajor   = "major"
	SupplierRelated = "related"
	SupplierOther   = "other"
)

// Table is the read-only reference list. Lookups walk it in order and the
// first match wins.
type Table []models.ReferenceEntity

// DefaultTable lists the named exporters of printing plates from China.
var DefaultTable = Table{
	{
		ID:      "lecai",
		NameEN:  "Jiangsu Lecai Printing Material Co., Ltd.",
		NameKO:  "강소낙채인쇄재료유한공사",
		Rate:    4.10,
		Type:    SupplierMajor,
		Address: "Jiangsu Province, China",
		Affiliates: []string{
			"Lucky Huaguang Graphics Co., Ltd.",
			"China Lucky Group Corporation",
		},
		Aliases: []string{"江苏乐凯", "乐凯印刷材料", "Lecai"},
	},
	{
		ID:      "huaguang",
		NameEN:  "Lucky Huaguang Graphics Co., Ltd.",
		NameKO:  "낙개화광도문유한공사",
		Rate:    3.60,
		Type:    SupplierMajor,
		Address: "Nanyang, Henan Province, China",
		Affiliates: []string{
			"China Lucky Group Corporation",
		},
		Aliases: []string{"乐凯华光", "华光印刷", "Lucky Huaguang"},
	},
}

var (
	targetProductKeywords = []string{
		"인쇄제판용", "사진플레이트", "평판", "ps plate", "ps판", "ctp", "printing plate",
		"presensitized", "pre-sensitized", "thermal plate", "offset plate",
	}
	targetSpecKeywords = []string{
		"알루미늄", "aluminium", "aluminum", "감광", "photosensitive", "0.15mm", "0.3mm", "thermal", "uv-ctp",
	}
)

// Covered reports whether a product falls under the duty. A confirmed
// enrichment verdict counts when neither keyword set matches.
func Covered(product models.ProductInfo) (bool, string) {
	name := strings.ToLower(product.Name)
	for _, kw := range targetProductKeywords {
		if strings.Contains(name, kw) {
			return true, fmt.Sprintf("product name matches %q", kw)
		}
	}

	spec := strings.ToLower(product.Specification)
	for _, kw := range targetSpecKeywords {
		if spec != "" && strings.Contains(spec, kw) {
			return true, fmt.Sprintf("specification matches %q", kw)
		}
	}

	if product.EnrichmentConfirmed != nil && *product.EnrichmentConfirmed {
		return true, "confirmed by web enrichment"
	}
	return false, "product is not a printing plate covered by the duty"
}

// matchesKeywords reports whether the name or specification alone places
// the product under the duty.
func matchesKeywords(product models.ProductInfo) bool {
	covered, _ := Covered(models.ProductInfo{Name: product.Name, Specification: product.Specification})
	return covered
}

// ConfirmFromResults derives an enrichment verdict from product search
// results: confirmed when any result describes a printing plate, nil when
// there is nothing to judge.
func ConfirmFromResults(results []models.SearchResult) *bool {
	if len(results) == 0 {
		return nil
	}
	confirmed := false
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		for _, kw := range targetProductKeywords {
			if strings.Contains(text, kw) {
				confirmed = true
				break
			}
		}
		if confirmed {
			break
		}
	}
	return &confirmed
}

// ConfirmProduct researches a product the keywords do not cover and stores
// the verdict in EnrichmentConfirmed. Products already covered by keyword
// are left untouched and searcher is not called.
func ConfirmProduct(ctx context.Context, searcher types.Searcher, product *models.ProductInfo) {
	if product == nil || searcher == nil || matchesKeywords(*product) {
		return
	}
	query := strings.TrimSpace(product.Name + " " + product.Specification)
	if query == "" {
		return
	}
	product.EnrichmentConfirmed = ConfirmFromResults(searcher.Search(ctx, query, models.KindProduct))
}

// Find returns the first entity whose display name occurs in name.
func (t Table) Find(name string) (models.ReferenceEntity, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return models.ReferenceEntity{}, false
	}

	for _, entity := range t {
		for _, display := range entity.Names() {
			if strings.Contains(needle, strings.ToLower(display)) {
				return entity, true
			}
		}
	}
	return models.ReferenceEntity{}, false
}

// RateFor looks up the duty for supplier. A product outside the duty's
// scope short-circuits to a zero, non-applicable rate. relatedTo is an
// optional hint naming an entity the supplier is related to.
func (t Table) RateFor(supplier string, product *models.ProductInfo, relatedTo string) models.RateResult {
	if product != nil {
		if covered, reason := Covered(*product); !covered {
			return models.RateResult{
				Rate:       0,
				Applicable: false,
				Reason:     "not applicable: " + reason,
			}
		}
	}

	if entity, ok := t.Find(supplier); ok {
		return models.RateResult{
			Rate:         entity.Rate,
			SupplierType: entity.Type,
			Applicable:   true,
			EntityID:     entity.ID,
			Reason:       "named supplier " + entity.NameEN,
		}
	}

	if entity, ok := t.Find(relatedTo); ok {
		return models.RateResult{
			Rate:         entity.Rate,
			SupplierType: SupplierRelated,
			Applicable:   true,
			EntityID:     entity.ID,
			Reason:       "related to " + entity.NameEN,
		}
	}

	return models.RateResult{
		Rate:         DefaultRate,
		SupplierType: SupplierOther,
		Applicable:   true,
		Reason:       "default rate for other suppliers",
	}
}

// Describe renders the table as prompt facts, one supplier per line,
// followed by the default rate.
func (t Table) Describe() string {
	var b strings.Builder
	for _, entity := range t {
		fmt.Fprintf(&b, "- %s (%s): %.2f%%\n", entity.NameKO, entity.NameEN, entity.Rate)
	}
	fmt.Fprintf(&b, "- 그 밖의 공급업체: %.2f%%", DefaultRate)
	return b.String()
}
