// Package corpus defines the trade-law document catalog and loads document
// text through a TextExtractor.
package corpus

import (
	"path/filepath"
	"sort"

	"github.com/xhad/tradeqa/internal/models"
)

const (
	CategoryDuty     = "덤핑방지관세"
	CategoryRuling   = "덤핑판정"
	CategoryStatutes = "관련법령"
)

// DefaultCategory is used when classification cannot be parsed.
const DefaultCategory = CategoryDuty

type documentSpec struct {
	name string
	file string
}

type categorySpec struct {
	name        string
	description string
	priority    int
	keywords    []string
	documents   []documentSpec
}

var defaultCategories = []categorySpec{
	{
		name:        CategoryDuty,
		description: "덤핑방지관세 부과에 관한 규칙, 덤핑마진, 정상가격, 수출가격 등 관련",
		priority:    1,
		keywords:    []string{"덤핑방지관세", "덤핑마진", "정상가격", "수출가격", "덤핑률", "반덤핑관세", "덤핑방지", "덤핑방지조치"},
		documents: []documentSpec{
			{
				name: "중국산 더블레이어 인쇄제판용 평면 모양 사진플레이트에 대한 덤핑방지관세 부과에 관한 규칙",
				file: "중국산 더블레이어 인쇄제판용 평면 모양 사진플레이트에 대한 덤핑방지관세 부과에 관한 규칙(기획재정부령)(제00940호)(20221025).pdf",
			},
			{
				name: "중국산 인쇄제판용 평면 모양 사진플레이트에 대한 덤핑방지관세 부과에 관한 규칙",
				file: "중국산 인쇄제판용 평면 모양 사진플레이트에 대한 덤핑방지관세 부과에 관한 규칙(기획재정부령)(제00882호)(20220101) (1).pdf",
			},
		},
	},
	{
		name:        CategoryRuling,
		description: "최종판정의결서, 예비판정, 산업피해, 실질적 피해, 인과관계 등 관련",
		priority:    2,
		keywords:    []string{"최종판정", "예비판정", "산업피해", "실질적 피해", "인과관계", "국내산업", "조사대상물품", "덤핑수입"},
		documents: []documentSpec{
			{
				name: "중국산 더블레이어 인쇄제판용 평면모양 사진플레이트 최종판정",
				file: "중국산 더블레이어 인쇄제판용 평면모양 사진플레이트_최종판정의결서.pdf",
			},
			{
				name: "중국산 인쇄제판용 평면모양 사진플레이트 최종판정",
				file: "중국산 인쇄제판용 평면모양 사진플레이트_최종판정의결서.pdf",
			},
		},
	},
	{
		name:        CategoryStatutes,
		description: "관세법, 불공정무역행위 조사 및 산업피해구제에 관한 법률 등 기본법령 관련",
		priority:    3,
		keywords:    []string{"관세법", "시행령", "시행규칙", "불공정무역", "산업피해구제", "무역위원회", "조사절차", "덤핑규정"},
		documents: []documentSpec{
			{name: "관세법", file: "관세법(법률)(제20608호)(20250401).pdf"},
			{name: "관세법 시행령", file: "관세법 시행령(대통령령)(제35363호)(20250722).pdf"},
			{name: "관세법 시행규칙", file: "관세법 시행규칙(기획재정부령)(제01110호)(20250321).pdf"},
			{name: "불공정무역행위 조사 및 산업피해구제에 관한 법률", file: "불공정무역행위 조사 및 산업피해구제에 관한 법률(법률)(제20693호)(20250722).pdf"},
		},
	},
}

// Catalog is the closed, ordered set of categories and their documents.
type Catalog struct {
	Categories []models.Category
}

// DefaultCatalog returns the built-in categories with locators under docsDir.
func DefaultCatalog(docsDir string) *Catalog {
	c := &Catalog{}
	for _, spec := range defaultCategories {
		category := models.Category{
			Name:        spec.name,
			Description: spec.description,
			Priority:    spec.priority,
			Keywords:    append([]string(nil), spec.keywords...),
		}
		for _, doc := range spec.documents {
			category.Documents = append(category.Documents, models.Document{
				Name:     doc.name,
				Category: spec.name,
				Locator:  filepath.Join(docsDir, doc.file),
			})
		}
		c.Categories = append(c.Categories, category)
	}
	return c
}

// Names returns category names in table order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// Category looks up a category by exact name.
func (c *Catalog) Category(name string) (models.Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return models.Category{}, false
}

// ByPriority returns the categories sorted by ascending priority, ties in
// table order.
func (c *Catalog) ByPriority() []models.Category {
	out := append([]models.Category(nil), c.Categories...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Documents returns every document in table order.
func (c *Catalog) Documents() []models.Document {
	var docs []models.Document
	for _, cat := range c.Categories {
		docs = append(docs, cat.Documents...)
	}
	return docs
}
