// Package entity derives supplier profiles from web enrichment and scores
// their relationship to the reference suppliers of the duty table.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/cache"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/tariff"
)

const (
	kindProfile      = "profile"
	kindRelationship = "relationship"

	relationshipConfidence = 0.9
)

var errNotEnriched = errors.New("entity: no enrichment data")

var (
	shareholdingKeywords = []string{"股东", "持股", "控股", "出资", "shareholder", "stake", "주주", "지분"}
	affiliationKeywords  = []string{"关联", "子公司", "母公司", "集团", "affiliate", "subsidiary", "parent company", "계열사", "자회사", "관계사", "모회사"}
)

type AnalyzerConfig struct {
	Freshness        time.Duration
	MinConfidence    float64
	AddressThreshold float64
	Now              func() time.Time
	Logger           *logrus.Entry
}

type cacheKey struct {
	Kind string
	Name string
}

// Analyzer builds entity profiles and relationship findings. Both are
// cached per analysis kind and entity name.
type Analyzer struct {
	config    AnalyzerConfig
	searcher  types.Searcher
	extractor types.FieldExtractor
	table     tariff.Table

	profiles *cache.Cache[cacheKey, models.EntityProfile]
	findings *cache.Cache[cacheKey, []models.RelationshipFinding]
	log      *logrus.Entry
}

// NewWithConfig wires the analyzer. searcher may be nil, in which case
// only name evidence is available. extractor defaults to KeywordExtractor.
func NewWithConfig(searcher types.Searcher, extractor types.FieldExtractor, table tariff.Table, config AnalyzerConfig) *Analyzer {
	if config.Freshness <= 0 {
		config.Freshness = 24 * time.Hour
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = 0.7
	}
	if config.AddressThreshold <= 0 {
		config.AddressThreshold = 0.8
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if extractor == nil {
		extractor = KeywordExtractor{}
	}
	if table == nil {
		table = tariff.DefaultTable
	}

	cacheConfig := cache.Config{TTL: config.Freshness, Now: config.Now}
	return &Analyzer{
		config:    config,
		searcher:  searcher,
		extractor: extractor,
		table:     table,
		profiles:  cache.New[cacheKey, models.EntityProfile](cacheConfig),
		findings:  cache.New[cacheKey, []models.RelationshipFinding](cacheConfig),
		log:       logger.Or(config.Logger, "entity"),
	}
}

// AnalyzeEntity searches for name and extracts a profile. Profiles backed
// by search results are cached; bare profiles are not.
func (a *Analyzer) AnalyzeEntity(ctx context.Context, name string) models.EntityProfile {
	name = strings.TrimSpace(name)
	key := cacheKey{Kind: kindProfile, Name: name}

	profile, err := a.profiles.GetOrLoad(key, func() (models.EntityProfile, error) {
		p := a.buildProfile(ctx, name)
		if !p.HasEnrichment() {
			return p, errNotEnriched
		}
		return p, nil
	})
	if err != nil {
		a.log.WithField("entity", name).Debug("profile built without enrichment")
	}
	return profile
}

// CheckRelationship scores name against every reference entity and
// returns the findings that clear the confidence floor.
func (a *Analyzer) CheckRelationship(ctx context.Context, name string) []models.RelationshipFinding {
	name = strings.TrimSpace(name)
	key := cacheKey{Kind: kindRelationship, Name: name}

	findings, _ := a.findings.GetOrLoad(key, func() ([]models.RelationshipFinding, error) {
		profile := a.AnalyzeEntity(ctx, name)
		findings := a.Score(profile)
		if !profile.HasEnrichment() {
			return findings, errNotEnriched
		}
		return findings, nil
	})
	return findings
}

// RelatedTo returns the English display name of the strongest related
// reference entity, or "" when there is none. It is the relatedTo hint
// for tariff lookups.
func (a *Analyzer) RelatedTo(ctx context.Context, name string) string {
	var (
		best     string
		bestConf float64
	)
	for _, f := range a.CheckRelationship(ctx, name) {
		if f.Confidence > bestConf {
			if entity, ok := a.entity(f.EntityID); ok {
				best, bestConf = entity.NameEN, f.Confidence
			}
		}
	}
	return best
}

// Score evaluates a profile against the reference table. Evidence is
// averaged per entity; entities under the floor are dropped, then weak
// evidence is pruned and the confidence recomputed from what remains.
func (a *Analyzer) Score(profile models.EntityProfile) []models.RelationshipFinding {
	var out []models.RelationshipFinding

	for _, ref := range a.table {
		evidence := a.collectEvidence(profile, ref)
		if len(evidence) == 0 || mean(evidence) < a.config.MinConfidence {
			continue
		}

		kept := evidence[:0]
		for _, e := range evidence {
			if e.Confidence >= a.config.MinConfidence {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			continue
		}

		out = append(out, models.RelationshipFinding{
			EntityID:   ref.ID,
			Evidence:   kept,
			Confidence: mean(kept),
		})
	}

	return out
}

// Purge drops expired profiles and findings.
func (a *Analyzer) Purge() int {
	return a.profiles.Purge() + a.findings.Purge()
}

func (a *Analyzer) buildProfile(ctx context.Context, name string) models.EntityProfile {
	var results []models.SearchResult
	if a.searcher != nil && name != "" {
		// The kinds share the backend's rate limiter; issuing them together
		// keeps relationship sub-queries from queueing behind every
		// registry lookup.
		var entityResults, relationResults []models.SearchResult
		var g errgroup.Group
		g.Go(func() error {
			entityResults = a.searcher.Search(ctx, name, models.KindEntity)
			return nil
		})
		g.Go(func() error {
			relationResults = a.searcher.Search(ctx, name, models.KindRelationship)
			return nil
		})
		g.Wait()
		results = append(entityResults, relationResults...)
	}

	profile := a.extractor.Extract(name, results)
	profile.Name = name
	profile.FetchedAt = a.config.Now()
	return profile
}

func (a *Analyzer) collectEvidence(profile models.EntityProfile, ref models.ReferenceEntity) []models.Evidence {
	var evidence []models.Evidence

	if sim := NameSimilarity(profile.Name, ref.Names()); sim >= a.config.MinConfidence {
		evidence = append(evidence, models.Evidence{
			Kind:       models.EvidenceName,
			Detail:     fmt.Sprintf("name similarity to %s", ref.NameEN),
			Confidence: sim,
		})
	}

	if !profile.HasEnrichment() {
		return evidence
	}

	if profile.Address != "" && ref.Address != "" {
		if sim := Jaccard(profile.Address, ref.Address); sim >= a.config.AddressThreshold {
			evidence = append(evidence, models.Evidence{
				Kind:       models.EvidenceAddress,
				Detail:     profile.Address,
				Confidence: sim,
			})
		}
	}

	names := ref.MatchNames()
	shareholding, affiliation := false, false
	for _, src := range profile.Sources {
		text := strings.ToLower(src.Title + " " + src.Snippet)
		if !containsAny(text, names) {
			continue
		}
		if !shareholding && containsAny(text, shareholdingKeywords) {
			shareholding = true
			evidence = append(evidence, models.Evidence{
				Kind:       models.EvidenceShareholder,
				Detail:     src.Snippet,
				Confidence: relationshipConfidence,
			})
		}
		if !affiliation && containsAny(text, affiliationKeywords) {
			affiliation = true
			evidence = append(evidence, models.Evidence{
				Kind:       models.EvidenceAffiliation,
				Detail:     src.Snippet,
				Confidence: relationshipConfidence,
			})
		}
	}

	return evidence
}

func (a *Analyzer) entity(id string) (models.ReferenceEntity, bool) {
	for _, e := range a.table {
		if e.ID == id {
			return e, true
		}
	}
	return models.ReferenceEntity{}, false
}

func mean(evidence []models.Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evidence {
		sum += e.Confidence
	}
	return sum / float64(len(evidence))
}
