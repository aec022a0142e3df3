package models

import "time"

// SearchResult is a single normalized item returned by the search backend.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// EnrichmentKind selects the sub-query plan used by the enrichment cache.
type EnrichmentKind string

const (
	KindGeneral      EnrichmentKind = "general"
	KindEntity       EnrichmentKind = "entity"
	KindProduct      EnrichmentKind = "product"
	KindRelationship EnrichmentKind = "relationship"
)

// EntityProfile holds supplier attributes derived from search snippets.
// Structured fields keep the first match; the slices collect every
// matching snippet.
type EntityProfile struct {
	Name               string
	Representative     string
	FoundedOn          string
	RegistrationNumber string
	Address            string

	Shareholders   []string
	Affiliates     []string
	Parents        []string
	BusinessScope  []string
	TradeActivity  []string
	Financials     []string
	Certifications []string
	News           []string

	Sources   []SearchResult
	FetchedAt time.Time
}

// HasEnrichment reports whether any search results backed the profile.
func (p EntityProfile) HasEnrichment() bool {
	return len(p.Sources) > 0
}

// ReferenceEntity is a row of the static supplier/duty-rate table.
type ReferenceEntity struct {
	ID         string
	NameKO     string
	NameEN     string
	Rate       float64
	Type       string
	Address    string
	Affiliates []string
	// Aliases are short or source-market names used when scanning
	// snippets. Rate lookups match display names only.
	Aliases []string
}

// Names returns the display names of both locales, skipping empty ones.
func (r ReferenceEntity) Names() []string {
	var names []string
	for _, n := range []string{r.NameEN, r.NameKO} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// MatchNames returns the display names followed by the aliases.
func (r ReferenceEntity) MatchNames() []string {
	names := r.Names()
	for _, a := range r.Aliases {
		if a != "" {
			names = append(names, a)
		}
	}
	return names
}

// EvidenceKind labels the signal behind a piece of evidence.
type EvidenceKind string

const (
	EvidenceName        EvidenceKind = "name"
	EvidenceAddress     EvidenceKind = "address"
	EvidenceShareholder EvidenceKind = "shareholding"
	EvidenceAffiliation EvidenceKind = "affiliation"
)

type Evidence struct {
	Kind       EvidenceKind
	Detail     string
	Confidence float64
}

// RelationshipFinding links an analyzed entity to one reference entity.
type RelationshipFinding struct {
	EntityID   string
	Evidence   []Evidence
	Confidence float64
}

// ProductInfo describes the goods a duty-rate lookup is about.
// EnrichmentConfirmed is nil when no web confirmation was attempted.
type ProductInfo struct {
	Name                string
	Specification       string
	EnrichmentConfirmed *bool
}

// RateResult is the outcome of a duty-rate lookup.
type RateResult struct {
	Rate         float64
	SupplierType string
	Applicable   bool
	EntityID     string
	Reason       string
}
