// Package processor converts downloaded files into search fragments:
// format-specific text extraction followed by semantic chunking with
// parent-paragraph retrieval.
package processor

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/logger"
)

// DefaultMaxChunkSize is the default maximum fragment size in runes.
const DefaultMaxChunkSize = 1000

// DefaultMinChunkSize is the default minimum fragment size in runes.
// Fragments below it are dropped as noise, except the final fragment
// of a source.
const DefaultMinChunkSize = 50

// DefaultOverlap is the default number of trailing runes of the previous
// fragment prepended to each fragment for cross-boundary continuity.
const DefaultOverlap = 200

// DefaultMinExtractedChars guards against image-only or scanned documents
// masquerading as text: extractions shorter than this are rejected.
const DefaultMinExtractedChars = 100

// Ensure Processor implements the interface.
var _ driven.Processor = (*Processor)(nil)

// Processor turns files into fragments. Fails closed: unsupported types,
// corrupt content and under-threshold extractions yield an empty list.
type Processor struct {
	registry          driven.ExtractorRegistry
	maxChunkSize      int
	minChunkSize      int
	overlap           int
	minExtractedChars int
}

// Option configures the processor.
type Option func(*Processor)

// WithMaxChunkSize sets the maximum fragment size in runes.
func WithMaxChunkSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChunkSize = n
		}
	}
}

// WithMinChunkSize sets the minimum fragment size in runes.
func WithMinChunkSize(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minChunkSize = n
		}
	}
}

// WithOverlap sets the cross-fragment overlap in runes.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlap = n
		}
	}
}

// WithMinExtractedChars sets the minimum extracted text length.
func WithMinExtractedChars(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minExtractedChars = n
		}
	}
}

// New creates a processor backed by the given extractor registry.
func New(registry driven.ExtractorRegistry, opts ...Option) *Processor {
	p := &Processor{
		registry:          registry,
		maxChunkSize:      DefaultMaxChunkSize,
		minChunkSize:      DefaultMinChunkSize,
		overlap:           DefaultOverlap,
		minExtractedChars: DefaultMinExtractedChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.maxChunkSize {
		p.overlap = p.maxChunkSize / 4
	}
	return p
}

// Process extracts text from the file at path and chunks it into fragments
// attributed to source. Returns an empty slice for unsupported or corrupt
// files and for extractions below the minimum length.
func (p *Processor) Process(path, mimeType, source string) ([]domain.Fragment, error) {
	extractor, ok := p.registry.ForMIMEType(mimeType)
	if !ok {
		logger.Warn("No extractor for %s (%s), skipping", source, mimeType)
		return nil, nil
	}

	text, err := extractor.Extract(context.Background(), path)
	if err != nil {
		logger.Warn("Extraction failed for %s: %v", source, err)
		return nil, nil
	}

	if len([]rune(text)) < p.minExtractedChars {
		logger.Warn("Extracted only %d chars from %s, treating as empty", len([]rune(text)), source)
		return nil, nil
	}

	isOCR := domain.IsOCRName(source)
	attributedTo := domain.OCROriginalName(source)

	fragments := p.chunk(text)
	for i := range fragments {
		fragments[i].ID = uuid.New().String()
		fragments[i].Source = attributedTo
		fragments[i].ChunkIndex = i
		fragments[i].TotalChunks = len(fragments)
		fragments[i].IsOCR = isOCR
	}

	logger.Debug("Processed %s: %d fragments", source, len(fragments))
	return fragments, nil
}

// chunk splits extracted text into fragments: paragraph split, sentence-bounded
// packing of oversized paragraphs, minimum-size filtering, then the overlap pass.
func (p *Processor) chunk(text string) []domain.Fragment {
	var fragments []domain.Fragment

	for _, para := range splitParagraphs(text) {
		runes := []rune(para)
		if len(runes) <= p.maxChunkSize {
			fragments = append(fragments, domain.Fragment{
				Content:       para,
				ParentContent: para,
			})
			continue
		}

		for _, sub := range p.packSentences(para) {
			fragments = append(fragments, domain.Fragment{
				Content:       sub,
				ParentContent: para,
			})
		}
	}

	fragments = p.dropUndersized(fragments)
	p.applyOverlap(fragments)
	return fragments
}

// packSentences greedily packs the sentences of an oversized paragraph into
// size-bounded sub-chunks, never splitting mid-sentence. A single sentence
// longer than the bound is hard-split at rune boundaries.
func (p *Processor) packSentences(para string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range splitSentences(para) {
		runes := []rune(sentence)

		if len(runes) > p.maxChunkSize {
			flush()
			for start := 0; start < len(runes); start += p.maxChunkSize {
				end := start + p.maxChunkSize
				if end > len(runes) {
					end = len(runes)
				}
				chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
			}
			continue
		}

		if currentLen > 0 && currentLen+1+len(runes) > p.maxChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += len(runes)
	}
	flush()

	return chunks
}

// dropUndersized removes fragments below the minimum size. The final
// fragment is kept regardless so short trailing paragraphs survive.
func (p *Processor) dropUndersized(fragments []domain.Fragment) []domain.Fragment {
	if len(fragments) == 0 {
		return fragments
	}

	kept := fragments[:0]
	for i, f := range fragments {
		if i == len(fragments)-1 || len([]rune(f.Content)) >= p.minChunkSize {
			kept = append(kept, f)
		}
	}
	return kept
}

// applyOverlap prepends a bounded trailing slice of the previous fragment's
// original text to each fragment. Parents stay untouched: the overlap exists
// for retrieval continuity, not for context expansion.
func (p *Processor) applyOverlap(fragments []domain.Fragment) {
	if p.overlap == 0 {
		return
	}

	// Capture pre-overlap contents first so overlaps never compound.
	originals := make([]string, len(fragments))
	for i, f := range fragments {
		originals[i] = f.Content
	}

	for i := 1; i < len(fragments); i++ {
		prev := []rune(originals[i-1])
		start := len(prev) - p.overlap
		if start < 0 {
			start = 0
		}
		fragments[i].Content = string(prev[start:]) + " " + fragments[i].Content
	}
}

// splitParagraphs splits text on blank-line boundaries.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// sentenceTerminators end a sentence when followed by whitespace or EOL.
var sentenceTerminators = map[rune]bool{'.': true, '!': true, '?': true, '…': true}

// splitSentences splits a paragraph into sentences on terminal punctuation.
// Text without terminal punctuation comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !sentenceTerminators[runes[i]] {
			continue
		}
		// Consume runs of terminators ("?!", "...")
		for i+1 < len(runes) && sentenceTerminators[runes[i+1]] {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue // abbreviation or number like "3.5"
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
