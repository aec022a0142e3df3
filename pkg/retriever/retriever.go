// Package retriever implements lexical retrieval over a single document:
// overlapping segments scored against a query by TF-IDF cosine similarity.
package retriever

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/processor"
)

// ErrEmptyIndex is returned when a text yields no segments.
var ErrEmptyIndex = errors.New("retriever: no segments to index")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

type RetrieverConfig struct {
	SegmentSize      int
	MinSegmentLength int
	TopK             int
	Threshold        float64
	Logger           *logrus.Entry
}

type Retriever struct {
	config    RetrieverConfig
	processor processor.Processor
	log       *logrus.Entry
}

// Index is the immutable retrieval index of one text.
type Index struct {
	segments []string
	vocab    map[string]int
	idf      []float64
	vectors  []sparseVector
	identity uint64
}

// Match is one scored segment.
type Match struct {
	Position int
	Segment  string
	Score    float64
}

type sparseVector map[int]float64

func NewWithConfig(config RetrieverConfig) *Retriever {
	if config.TopK <= 0 {
		config.TopK = 3
	}
	if config.Threshold <= 0 {
		config.Threshold = 0.005
	}

	return &Retriever{
		config: config,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			SegmentSize:      config.SegmentSize,
			MinSegmentLength: config.MinSegmentLength,
		}),
		log: logger.Or(config.Logger, "retriever"),
	}
}

// Build segments text and fits the term weights. Empty or whitespace-only
// text, or text too short for a single segment, returns ErrEmptyIndex.
func (r *Retriever) Build(text string) (*Index, error) {
	segments := r.processor.Segment(text)
	if len(segments) == 0 {
		return nil, ErrEmptyIndex
	}

	idx := &Index{
		segments: segments,
		vocab:    make(map[string]int),
		identity: Identity(text),
	}

	counts := make([]map[int]float64, len(segments))
	var df []int
	for i, seg := range segments {
		counts[i] = make(map[int]float64)
		for _, tok := range tokenize(seg) {
			id, ok := idx.vocab[tok]
			if !ok {
				id = len(idx.vocab)
				idx.vocab[tok] = id
				df = append(df, 0)
			}
			if counts[i][id] == 0 {
				df[id]++
			}
			counts[i][id]++
		}
	}

	n := float64(len(segments))
	idx.idf = make([]float64, len(df))
	for id, d := range df {
		idx.idf[id] = math.Log((1+n)/(1+float64(d))) + 1
	}

	idx.vectors = make([]sparseVector, len(segments))
	for i, c := range counts {
		idx.vectors[i] = idx.weigh(c)
	}

	r.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"terms":    len(idx.vocab),
	}).Debug("index built")

	return idx, nil
}

// Search runs Query with the configured top-K and threshold.
func (r *Retriever) Search(idx *Index, query string) []Match {
	return idx.Query(query, r.config.TopK, r.config.Threshold)
}

// Query scores every segment against text and returns the top-K by score,
// ties broken by segment position. Matches scoring above threshold are
// kept; when none do, the unfiltered top-K is returned so that a non-empty
// index never yields an empty result.
func (idx *Index) Query(text string, topK int, threshold float64) []Match {
	if idx == nil || len(idx.segments) == 0 {
		return nil
	}

	q := make(map[int]float64)
	for _, tok := range tokenize(text) {
		if id, ok := idx.vocab[tok]; ok {
			q[id]++
		}
	}
	qv := idx.weigh(q)

	matches := make([]Match, len(idx.segments))
	for i, seg := range idx.segments {
		matches[i] = Match{Position: i, Segment: seg, Score: dot(qv, idx.vectors[i])}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if topK <= 0 || topK > len(matches) {
		topK = len(matches)
	}
	top := matches[:topK]

	var passed []Match
	for _, m := range top {
		if m.Score > threshold {
			passed = append(passed, m)
		}
	}
	if len(passed) == 0 {
		return append([]Match(nil), top...)
	}
	return passed
}

// Segments returns the indexed segments in document order.
func (idx *Index) Segments() []string {
	return append([]string(nil), idx.segments...)
}

// Identity is the hash of the text the index was built from.
func (idx *Index) Identity() uint64 {
	return idx.identity
}

// Join concatenates matched segments into one context block.
func Join(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Segment
	}
	return strings.Join(parts, "\n\n")
}

// Identity hashes text for change detection.
func Identity(text string) uint64 {
	return xxhash.Sum64String(text)
}

func (idx *Index) weigh(counts map[int]float64) sparseVector {
	v := make(sparseVector, len(counts))
	var norm float64
	for id, c := range counts {
		w := c * idx.idf[id]
		v[id] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for id := range v {
		v[id] /= norm
	}
	return v
}

func dot(a, b sparseVector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for id, w := range a {
		sum += w * b[id]
	}
	return sum
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
