package entity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/entity"
	"github.com/xhad/tradeqa/pkg/tariff"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results map[models.EnrichmentKind][]models.SearchResult
}

func (f *fakeSearcher) Search(ctx context.Context, query string, kind models.EnrichmentKind) []models.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results[kind]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestKeywordExtractor(t *testing.T) {
	results := []models.SearchResult{
		{
			Title:   "江苏乐凯印刷材料有限公司 - 企查查",
			Snippet: "法定代表人：张三 成立日期：2003-05-12 统一社会信用代码 91320000123456789X 注册地址：江苏省无锡市新吴区，经营范围：印刷版材",
			Link:    "https://www.qcc.com/firm/1",
		},
		{
			Title:   "Lecai news",
			Snippet: "Lecai exports thermal CTP plates to Korea. Shareholder: China Lucky Group.",
			Link:    "https://example.com/news",
		},
		{
			Title:   "사업자 정보",
			Snippet: "설립일 2001년 3월 5일 사업자등록번호 123-45-67890",
			Link:    "https://example.kr/company",
		},
	}

	profile := entity.KeywordExtractor{}.Extract("Jiangsu Lecai", results)

	assert.Equal(t, "Jiangsu Lecai", profile.Name)
	assert.Equal(t, "张三", profile.Representative)
	assert.Equal(t, "2003-05-12", profile.FoundedOn, "first match wins")
	assert.Equal(t, "91320000123456789X", profile.RegistrationNumber)
	assert.Equal(t, "江苏省无锡市新吴区", profile.Address)
	assert.Len(t, profile.Shareholders, 1)
	assert.Len(t, profile.TradeActivity, 1)
	assert.Len(t, profile.BusinessScope, 1)
	assert.Len(t, profile.News, 1)
	assert.Len(t, profile.Sources, 3)
	assert.True(t, profile.HasEnrichment())
}

func TestKeywordExtractor_KoreanFields(t *testing.T) {
	profile := entity.KeywordExtractor{}.Extract("테스트", []models.SearchResult{
		{Title: "회사 정보", Snippet: "설립일 2001년 3월 5일 사업자등록번호 123-45-67890", Link: "https://example.kr"},
	})

	assert.Equal(t, "2001-03-05", profile.FoundedOn)
	assert.Equal(t, "123-45-67890", profile.RegistrationNumber)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, entity.NameSimilarity("Jiangsu Lecai", []string{"Jiangsu Lecai Printing Material Co., Ltd."}))
	assert.Equal(t, 1.0, entity.NameSimilarity("수입처 강소낙채인쇄재료유한공사", []string{"Other", "강소낙채인쇄재료유한공사"}))
	assert.InDelta(t, 1.0/5.0, entity.NameSimilarity("Jiangsu Trading Co., Ltd.", []string{"Jiangsu Lecai Printing Material Co., Ltd."}), 1e-9)
	assert.Zero(t, entity.NameSimilarity("Nanyang Trading Co., Ltd.", []string{"Lucky Huaguang Graphics Co., Ltd."}))
	assert.Zero(t, entity.NameSimilarity("Co., Ltd.", []string{"Lucky Huaguang Graphics Co., Ltd."}))
	assert.InDelta(t, 1.0/3.0, entity.NameSimilarity("乐凯华光有限公司 Lucky", []string{"乐凯华光 Huaguang"}), 1e-9)
	assert.Zero(t, entity.NameSimilarity("", []string{"x"}))
	assert.Equal(t, 1.0, entity.Jaccard("Nanyang, Henan", "henan nanyang"))
}

func newAnalyzer(searcher *fakeSearcher, clk *clock) *entity.Analyzer {
	config := entity.AnalyzerConfig{}
	if clk != nil {
		config.Now = clk.Now
	}
	if searcher == nil {
		return entity.NewWithConfig(nil, nil, tariff.DefaultTable, config)
	}
	return entity.NewWithConfig(searcher, nil, tariff.DefaultTable, config)
}

func TestScore_SingleStrongEvidenceRetained(t *testing.T) {
	a := newAnalyzer(nil, nil)

	findings := a.Score(models.EntityProfile{
		Name: "Nanyang Trading",
		Sources: []models.SearchResult{
			{Title: "Nanyang Trading", Snippet: "Nanyang Trading 的股东为乐凯华光", Link: "https://example.com/1"},
		},
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "huaguang", findings[0].EntityID)
	require.Len(t, findings[0].Evidence, 1)
	assert.Equal(t, models.EvidenceShareholder, findings[0].Evidence[0].Kind)
	assert.Equal(t, 0.9, findings[0].Confidence)
}

func TestScore_WeakNameSimilarityIsNotEvidence(t *testing.T) {
	a := newAnalyzer(nil, nil)

	nameOnly := a.Score(models.EntityProfile{Name: "Jiangsu Trading Co., Ltd."})
	assert.Empty(t, nameOnly)

	findings := a.Score(models.EntityProfile{
		Name: "Jiangsu Trading Co., Ltd.",
		Sources: []models.SearchResult{
			{Snippet: "Jiangsu Trading Co., Ltd. 股东 江苏乐凯", Link: "https://example.com/2"},
		},
	})
	require.Len(t, findings, 1)
	assert.Equal(t, "lecai", findings[0].EntityID)
	require.Len(t, findings[0].Evidence, 1)
	assert.Equal(t, models.EvidenceShareholder, findings[0].Evidence[0].Kind)
}

func TestScore_LegalFormSuffixKeepsRelationship(t *testing.T) {
	a := newAnalyzer(nil, nil)
	snippet := []models.SearchResult{{Snippet: "的股东为乐凯华光", Link: "https://example.com/1"}}

	plain := a.Score(models.EntityProfile{Name: "Nanyang Trading", Sources: snippet})
	suffixed := a.Score(models.EntityProfile{Name: "Nanyang Printing Co., Ltd.", Sources: snippet})

	require.Len(t, plain, 1)
	require.Len(t, suffixed, 1)
	assert.Equal(t, "huaguang", suffixed[0].EntityID)
	assert.Equal(t, 0.9, suffixed[0].Confidence)
	assert.Equal(t, plain[0].EntityID, suffixed[0].EntityID)
}

func TestScore_ExactNameIsEvidence(t *testing.T) {
	a := newAnalyzer(nil, nil)

	findings := a.Score(models.EntityProfile{Name: "강소낙채인쇄재료유한공사 무역부"})
	require.Len(t, findings, 1)
	assert.Equal(t, "lecai", findings[0].EntityID)
	assert.Equal(t, models.EvidenceName, findings[0].Evidence[0].Kind)
	assert.Equal(t, 1.0, findings[0].Confidence)
}

func TestScore_PrunesWeakEvidence(t *testing.T) {
	a := newAnalyzer(nil, nil)

	findings := a.Score(models.EntityProfile{
		Name: "Lucky Huaguang Printing Co., Ltd.",
		Sources: []models.SearchResult{
			{Snippet: "Lucky Huaguang Printing 股东 China Lucky Group; 乐凯华光 子公司", Link: "https://example.com/3"},
		},
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "huaguang", findings[0].EntityID)
	assert.Len(t, findings[0].Evidence, 2)
	for _, e := range findings[0].Evidence {
		assert.GreaterOrEqual(t, e.Confidence, 0.7)
	}
	assert.InDelta(t, 0.9, findings[0].Confidence, 1e-9)
}

func TestScore_AddressEvidence(t *testing.T) {
	a := newAnalyzer(nil, nil)

	findings := a.Score(models.EntityProfile{
		Name:    "Henan Plate Works",
		Address: "Nanyang, Henan Province, China",
		Sources: []models.SearchResult{{Snippet: "plant address", Link: "https://example.com/4"}},
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "huaguang", findings[0].EntityID)
	assert.Equal(t, models.EvidenceAddress, findings[0].Evidence[0].Kind)
}

func TestCheckRelationship_CachedForFreshness(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	searcher := &fakeSearcher{results: map[models.EnrichmentKind][]models.SearchResult{
		models.KindRelationship: {
			{Title: "Nanyang Trading", Snippet: "Nanyang Trading 的股东为乐凯华光", Link: "https://example.com/1"},
		},
	}}
	a := newAnalyzer(searcher, clk)

	first := a.CheckRelationship(context.Background(), "Nanyang Trading")
	require.Len(t, first, 1)
	calls := searcher.calls

	clk.Advance(23 * time.Hour)
	second := a.CheckRelationship(context.Background(), "Nanyang Trading")
	assert.Equal(t, first, second)
	assert.Equal(t, calls, searcher.calls)

	clk.Advance(time.Hour)
	a.CheckRelationship(context.Background(), "Nanyang Trading")
	assert.Greater(t, searcher.calls, calls)
}

func TestRelatedTo(t *testing.T) {
	searcher := &fakeSearcher{results: map[models.EnrichmentKind][]models.SearchResult{
		models.KindEntity: {
			{Title: "Nanyang Trading", Snippet: "Nanyang Trading 的股东为乐凯华光", Link: "https://example.com/1"},
		},
	}}
	a := newAnalyzer(searcher, nil)

	hint := a.RelatedTo(context.Background(), "Nanyang Trading")
	assert.Equal(t, "Lucky Huaguang Graphics Co., Ltd.", hint)

	res := tariff.DefaultTable.RateFor("Nanyang Trading", nil, hint)
	assert.Equal(t, 3.60, res.Rate)
	assert.Equal(t, tariff.SupplierRelated, res.SupplierType)

	assert.Empty(t, newAnalyzer(nil, nil).RelatedTo(context.Background(), "Unknown Co."))
}

func TestSupplierNames(t *testing.T) {
	names := entity.SupplierNames("Nanyang Trading Co., Ltd.와 강소낙채인쇄재료유한공사, 그리고 乐凯华光有限公司의 관계는? Nanyang Trading Co., Ltd.")
	assert.Equal(t, []string{"Nanyang Trading Co., Ltd.", "강소낙채인쇄재료유한공사", "乐凯华光有限公司"}, names)
	assert.Empty(t, entity.SupplierNames("세율은 얼마인가요?"))
}

// rendezvousSearcher answers a kind only once every kind it expects is in
// flight, so a caller that searches one kind after another gets nothing
// for the first.
type rendezvousSearcher struct {
	mu      sync.Mutex
	arrived int
	expect  int
	ready   chan struct{}
	results map[models.EnrichmentKind][]models.SearchResult
}

func (r *rendezvousSearcher) Search(ctx context.Context, query string, kind models.EnrichmentKind) []models.SearchResult {
	r.mu.Lock()
	r.arrived++
	if r.arrived == r.expect {
		close(r.ready)
	}
	r.mu.Unlock()

	select {
	case <-r.ready:
		return r.results[kind]
	case <-time.After(time.Second):
		return nil
	case <-ctx.Done():
		return nil
	}
}

func TestAnalyzeEntity_SearchesKindsTogether(t *testing.T) {
	searcher := &rendezvousSearcher{
		expect: 2,
		ready:  make(chan struct{}),
		results: map[models.EnrichmentKind][]models.SearchResult{
			models.KindEntity: {
				{Title: "Nanyang Trading", Snippet: "法定代表人 张伟", Link: "https://www.qcc.com/firm/1"},
			},
			models.KindRelationship: {
				{Title: "Nanyang Trading 股东", Snippet: "Nanyang Trading 的股东为乐凯华光", Link: "https://example.com/2"},
			},
		},
	}
	a := entity.NewWithConfig(searcher, nil, tariff.DefaultTable, entity.AnalyzerConfig{})

	profile := a.AnalyzeEntity(context.Background(), "Nanyang Trading")
	require.Len(t, profile.Sources, 2)
	assert.Equal(t, "https://www.qcc.com/firm/1", profile.Sources[0].Link)

	findings := a.Score(profile)
	require.Len(t, findings, 1)
	assert.Equal(t, "huaguang", findings[0].EntityID)
}
