// Package processor prepares extracted document text for retrieval: it
// normalizes whitespace, cuts fixed-size overlapping segments and splits
// text into sentences.
package processor

import (
	"strings"
	"unicode"
)

type ProcessorConfig struct {
	// SegmentSize is the window length in characters. The stride is half of it.
	SegmentSize int
	// MinSegmentLength drops shorter segments.
	MinSegmentLength int
	// PreserveLineBreaks keeps newlines when cleaning text.
	PreserveLineBreaks bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.SegmentSize < 2 {
		config.SegmentSize = 1000
	}
	if config.MinSegmentLength <= 0 {
		config.MinSegmentLength = 100
	}

	return Processor{
		config: config,
	}
}

// Segment cleans text and slices it into windows of SegmentSize characters
// advancing by SegmentSize/2. The final window ends exactly at the end of
// the text. Segments shorter than MinSegmentLength are discarded.
func (p Processor) Segment(text string) []string {
	runes := []rune(p.CleanText(text))
	size := p.config.SegmentSize
	stride := size / 2

	var segments []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		if end-start >= p.config.MinSegmentLength {
			segments = append(segments, string(runes[start:end]))
		}
		if end == len(runes) {
			break
		}
	}

	return segments
}

// CleanText collapses runs of whitespace. With PreserveLineBreaks set,
// line structure survives and only blank lines are dropped.
func (p Processor) CleanText(text string) string {
	if !p.config.PreserveLineBreaks {
		return strings.Join(strings.Fields(text), " ")
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// SplitSentences breaks text after terminal punctuation followed by
// whitespace, and at line breaks.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	current := strings.Builder{}

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)

		if isSentenceEnd(r) && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			flush()
		}
	}
	flush()

	return sentences
}

// FirstSentences returns at most n leading sentences joined by a space.
func FirstSentences(text string, n int) string {
	sentences := SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
