package tariff_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/enrichment"
	"github.com/xhad/tradeqa/pkg/tariff"
)

func TestRateFor(t *testing.T) {
	table := tariff.DefaultTable

	tests := []struct {
		name      string
		supplier  string
		relatedTo string
		rate      float64
		kind      string
		entityID  string
	}{
		{"named supplier", "Jiangsu Lecai Printing Material Co., Ltd.", "", 4.10, tariff.SupplierMajor, "lecai"},
		{"korean name inside longer text", "수출자: 강소낙채인쇄재료유한공사 (중국)", "", 4.10, tariff.SupplierMajor, "lecai"},
		{"case insensitive", "LUCKY HUAGUANG GRAPHICS CO., LTD.", "", 3.60, tariff.SupplierMajor, "huaguang"},
		{"unknown", "Unknown Co.", "", tariff.DefaultRate, tariff.SupplierOther, ""},
		{"related hint", "Nanyang Trading Co.", "Lucky Huaguang Graphics Co., Ltd.", 3.60, tariff.SupplierRelated, "huaguang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := table.RateFor(tt.supplier, nil, tt.relatedTo)
			assert.Equal(t, tt.rate, res.Rate)
			assert.Equal(t, tt.kind, res.SupplierType)
			assert.Equal(t, tt.entityID, res.EntityID)
			assert.True(t, res.Applicable)
		})
	}
}

func TestRateFor_FirstMatchInTableOrder(t *testing.T) {
	table := tariff.Table{
		{ID: "first", NameEN: "Acme", Rate: 1, Type: tariff.SupplierMajor},
		{ID: "second", NameEN: "Acme Plates", Rate: 2, Type: tariff.SupplierMajor},
	}

	res := table.RateFor("Acme Plates Ltd.", nil, "")
	assert.Equal(t, "first", res.EntityID)
}

func TestRateFor_NonTargetProduct(t *testing.T) {
	product := &models.ProductInfo{Name: "Cotton T-shirt", Specification: "100% cotton"}

	res := tariff.DefaultTable.RateFor("Jiangsu Lecai Printing Material Co., Ltd.", product, "")
	assert.Zero(t, res.Rate)
	assert.False(t, res.Applicable)
	assert.Contains(t, res.Reason, "not applicable")
}

func TestCovered(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name    string
		product models.ProductInfo
		want    bool
	}{
		{"korean name", models.ProductInfo{Name: "인쇄제판용 평면모양 사진플레이트"}, true},
		{"english name", models.ProductInfo{Name: "Thermal CTP Plate"}, true},
		{"specification", models.ProductInfo{Name: "Model X", Specification: "Aluminium base 0.3mm"}, true},
		{"enrichment confirmed", models.ProductInfo{Name: "LH-PJ", EnrichmentConfirmed: &yes}, true},
		{"enrichment denied", models.ProductInfo{Name: "LH-PJ", EnrichmentConfirmed: &no}, false},
		{"unrelated", models.ProductInfo{Name: "Steel pipe"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := tariff.Covered(tt.product)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestFind(t *testing.T) {
	entity, ok := tariff.DefaultTable.Find("낙개화광도문유한공사")
	require.True(t, ok)
	assert.Equal(t, "huaguang", entity.ID)

	_, ok = tariff.DefaultTable.Find("")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	facts := tariff.DefaultTable.Describe()
	assert.Contains(t, facts, "4.10%")
	assert.Contains(t, facts, "3.60%")
	assert.Contains(t, facts, "7.61%")
}

// productBackend answers web searches from a fixed table keyed by query.
type productBackend struct {
	mu      sync.Mutex
	queries []string
	results map[string][]models.SearchResult
}

func (b *productBackend) Search(ctx context.Context, query string, count int, locale string) ([]models.SearchResult, error) {
	b.mu.Lock()
	b.queries = append(b.queries, query)
	b.mu.Unlock()
	return b.results[query], nil
}

func TestConfirmProduct(t *testing.T) {
	backend := &productBackend{results: map[string][]models.SearchResult{
		"LH-PJA specification": {{
			Title:   "LH-PJA thermal CTP plate",
			Snippet: "Positive thermal printing plate for offset presses",
			Link:    "https://example.com/lh-pja",
		}},
		"Blue ink 500ml specification": {{
			Title:   "Blue ink 500ml",
			Snippet: "Water based ink for fountain pens",
			Link:    "https://example.com/ink",
		}},
	}}
	searcher := enrichment.NewWithConfig(backend, enrichment.EnricherConfig{})

	plate := &models.ProductInfo{Name: "LH-PJA"}
	tariff.ConfirmProduct(context.Background(), searcher, plate)
	require.NotNil(t, plate.EnrichmentConfirmed)
	assert.True(t, *plate.EnrichmentConfirmed)

	res := tariff.DefaultTable.RateFor("Jiangsu Lecai Printing Material Co., Ltd.", plate, "")
	assert.True(t, res.Applicable)
	assert.Equal(t, 4.10, res.Rate)

	ink := &models.ProductInfo{Name: "Blue ink 500ml"}
	tariff.ConfirmProduct(context.Background(), searcher, ink)
	require.NotNil(t, ink.EnrichmentConfirmed)
	assert.False(t, *ink.EnrichmentConfirmed)
	assert.False(t, tariff.DefaultTable.RateFor("Jiangsu Lecai Printing Material Co., Ltd.", ink, "").Applicable)
}

func TestConfirmProduct_KeywordMatchSkipsSearch(t *testing.T) {
	backend := &productBackend{}
	searcher := enrichment.NewWithConfig(backend, enrichment.EnricherConfig{})

	product := &models.ProductInfo{Name: "CTP printing plate"}
	tariff.ConfirmProduct(context.Background(), searcher, product)

	assert.Nil(t, product.EnrichmentConfirmed)
	assert.Empty(t, backend.queries)
}

func TestConfirmProduct_NoResultsLeavesVerdictUnset(t *testing.T) {
	searcher := enrichment.NewWithConfig(&productBackend{}, enrichment.EnricherConfig{})

	product := &models.ProductInfo{Name: "LH-XYZ"}
	tariff.ConfirmProduct(context.Background(), searcher, product)

	assert.Nil(t, product.EnrichmentConfirmed)
	assert.Nil(t, tariff.ConfirmFromResults(nil))
}
