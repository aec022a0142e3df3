package entity

import (
	"regexp"
	"strings"
	"unicode"
)

// Tokens lowercases s and splits it on anything that is not a letter or
// digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Jaccard is the token-set Jaccard similarity of a and b.
func Jaccard(a, b string) float64 {
	return jaccardSets(tokenSet(a), tokenSet(b))
}

func jaccardSets(setA, setB map[string]bool) float64 {
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if setB[tok] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

// legalForms are company-form words every supplier name shares; they are
// left out of name comparison.
var legalForms = map[string]bool{
	"co": true, "ltd": true, "inc": true, "corp": true, "corporation": true,
	"limited": true, "company": true, "llc": true, "plc": true,
}

// legalSuffixes end CJK names, which tokenize as one word.
var legalSuffixes = []string{"股份有限公司", "有限公司", "유한공사", "주식회사"}

// nameTokenSet is the token set of a company name without legal forms.
func nameTokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(s) {
		if legalForms[tok] {
			continue
		}
		for _, suffix := range legalSuffixes {
			if strings.HasSuffix(tok, suffix) && tok != suffix {
				tok = strings.TrimSuffix(tok, suffix)
				break
			}
		}
		if tok != "" && !legalForms[tok] {
			set[tok] = true
		}
	}
	return set
}

// NameSimilarity is 1.0 when either name contains the other, otherwise
// the best token Jaccard against the candidates. Legal forms such as
// "Co., Ltd." or 有限公司 do not count as shared tokens.
func NameSimilarity(name string, candidates []string) float64 {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" || len(nameTokenSet(lower)) == 0 {
		return 0
	}

	best := 0.0
	for _, c := range candidates {
		cl := strings.ToLower(strings.TrimSpace(c))
		if cl == "" {
			continue
		}
		if strings.Contains(lower, cl) || strings.Contains(cl, lower) {
			return 1.0
		}
		if j := jaccardSets(nameTokenSet(lower), nameTokenSet(cl)); j > best {
			best = j
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(s) {
		set[tok] = true
	}
	return set
}

var companyPattern = regexp.MustCompile(`(?:[A-Z][\w&'.-]*\s+){1,6}(?:Co\.,?\s*Ltd\.?|Corporation|Corp\.|Inc\.|Limited|Group)|[\p{Hangul}]{2,}(?:유한공사|주식회사)|\(주\)[\p{Hangul}]{2,}|[\p{Han}]{2,}(?:有限公司|集团)`)

// SupplierNames finds company-like names in free text, in order of
// appearance and without duplicates.
func SupplierNames(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range companyPattern.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if !seen[m] {
			seen[m] = true
			names = append(names, m)
		}
	}
	return names
}
