package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
)

var (
	usccPattern = regexp.MustCompile(`[0-9A-HJ-NPQRTUWXY]{2}\d{6}[0-9A-HJ-NPQRTUWXY]{10}`)
	brnPattern  = regexp.MustCompile(`\d{3}-\d{2}-\d{5}`)
	datePattern = regexp.MustCompile(`(\d{4})\s*[年.\-/년]\s*(\d{1,2})\s*[月.\-/월]\s*(\d{1,2})`)

	representativePattern = regexp.MustCompile(`(?i)(?:法定代表人|法人代表|대표이사|대표자|legal representative)\s*[:：]?\s*([\p{Han}]{2,4}|[\p{Hangul}]{2,4}|[A-Z][a-z]+(?: [A-Z][a-z]+){0,2})`)
	addressPattern        = regexp.MustCompile(`(?i)(?:注册地址|企业地址|地址|住所|주소|소재지|address)\s*[:：]?\s*([^，,;；。|\n]{4,80})`)
)

type field struct {
	keywords []string
	target   func(p *models.EntityProfile) *[]string
}

var (
	representativeKeywords = []string{"法定代表人", "法人代表", "대표이사", "대표자", "legal representative"}
	foundedKeywords        = []string{"成立日期", "成立于", "成立时间", "설립일", "설립", "founded", "established", "incorporated"}
	registrationKeywords   = []string{"统一社会信用代码", "信用代码", "注册号", "사업자등록번호", "등록번호", "registration", "credit code"}
	addressKeywords        = []string{"注册地址", "企业地址", "地址", "住所", "주소", "소재지", "address"}

	unstructuredFields = []field{
		{
			keywords: []string{"股东", "持股", "出资", "shareholder", "stake", "주주", "지분"},
			target:   func(p *models.EntityProfile) *[]string { return &p.Shareholders },
		},
		{
			keywords: []string{"关联公司", "关联企业", "子公司", "分公司", "affiliate", "subsidiary", "계열사", "자회사", "관계사"},
			target:   func(p *models.EntityProfile) *[]string { return &p.Affiliates },
		},
		{
			keywords: []string{"母公司", "控股股东", "集团", "parent company", "holding", "group corporation", "모회사", "지주회사"},
			target:   func(p *models.EntityProfile) *[]string { return &p.Parents },
		},
		{
			keywords: []string{"经营范围", "主营", "business scope", "principal business", "사업 범위", "주요 사업", "사업영역"},
			target:   func(p *models.EntityProfile) *[]string { return &p.BusinessScope },
		},
		{
			keywords: []string{"出口", "进口", "进出口", "export", "import", "수출", "수입"},
			target:   func(p *models.EntityProfile) *[]string { return &p.TradeActivity },
		},
		{
			keywords: []string{"注册资本", "营业收入", "营收", "revenue", "registered capital", "sales", "매출", "자본금"},
			target:   func(p *models.EntityProfile) *[]string { return &p.Financials },
		},
		{
			keywords: []string{"认证", "iso", "certification", "certified", "인증"},
			target:   func(p *models.EntityProfile) *[]string { return &p.Certifications },
		},
		{
			keywords: []string{"新闻", "报道", "news", "press release", "뉴스", "기사", "보도"},
			target:   func(p *models.EntityProfile) *[]string { return &p.News },
		},
	}
)

// KeywordExtractor fills profile fields from search snippets using keyword
// gates and regular expressions.
type KeywordExtractor struct{}

var _ types.FieldExtractor = KeywordExtractor{}

// Extract scans each result's title and snippet. Structured fields keep
// the first match; list fields collect every matching snippet.
func (KeywordExtractor) Extract(name string, results []models.SearchResult) models.EntityProfile {
	profile := models.EntityProfile{
		Name:    name,
		Sources: results,
	}

	for _, r := range results {
		text := strings.TrimSpace(r.Title + " " + r.Snippet)
		lower := strings.ToLower(text)

		if profile.Representative == "" && containsAny(lower, representativeKeywords) {
			if m := representativePattern.FindStringSubmatch(text); m != nil {
				profile.Representative = strings.TrimSpace(m[1])
			}
		}
		if profile.FoundedOn == "" && containsAny(lower, foundedKeywords) {
			if m := datePattern.FindStringSubmatch(text); m != nil {
				profile.FoundedOn = normalizeDate(m[1], m[2], m[3])
			}
		}
		if profile.RegistrationNumber == "" && containsAny(lower, registrationKeywords) {
			if m := usccPattern.FindString(text); m != "" {
				profile.RegistrationNumber = m
			} else if m := brnPattern.FindString(text); m != "" {
				profile.RegistrationNumber = m
			}
		}
		if profile.Address == "" && containsAny(lower, addressKeywords) {
			if m := addressPattern.FindStringSubmatch(text); m != nil {
				profile.Address = strings.TrimSpace(m[1])
			}
		}

		for _, f := range unstructuredFields {
			if containsAny(lower, f.keywords) {
				target := f.target(&profile)
				*target = append(*target, r.Snippet)
			}
		}
	}

	return profile
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func normalizeDate(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}
