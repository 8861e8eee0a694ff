// Package index implements the in-memory hybrid search index: keyword
// overlap and TF-IDF cosine similarity fused into one ranking, with query
// expansion and metadata filtering.
//
// Rebuilds are whole-index: adding fragments re-derives every structure
// from the full corpus. Rebuilds happen on infrequent scheduled refreshes,
// so simplicity wins over incremental-index bookkeeping. Queries running
// during a rebuild observe the previous complete corpus; the new one is
// swapped in atomically once built.
package index

import (
	"math"
	"sort"
	"sync"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
)

// DefaultSimilarityWeight is the fused-score weight of the TF-IDF cosine
// similarity signal.
const DefaultSimilarityWeight = 0.6

// DefaultKeywordWeight is the fused-score weight of the normalised keyword
// overlap signal.
const DefaultKeywordWeight = 0.4

// Ensure Index implements the interface.
var _ driven.SearchIndex = (*Index)(nil)

// Index answers ranked queries over the current fragment corpus.
type Index struct {
	synonyms  SynonymTable
	simWeight float64
	kwWeight  float64

	mu     sync.RWMutex
	corpus *corpus
}

// corpus is an immutable snapshot of the indexed fragments and every
// structure derived from them. Readers take the pointer once and never see
// a partially built state.
type corpus struct {
	fragments []domain.Fragment
	tf        []map[string]int
	docLen    []int
	idf       map[string]float64
	norms     []float64

	bySource   map[string][]int
	byCategory map[domain.Category][]int
}

// Option configures the index.
type Option func(*Index)

// WithSynonyms replaces the default synonym table.
func WithSynonyms(t SynonymTable) Option {
	return func(i *Index) { i.synonyms = t }
}

// WithFusionWeights sets the similarity/keyword fusion weights.
func WithFusionWeights(similarity, keyword float64) Option {
	return func(i *Index) {
		if similarity > 0 && keyword >= 0 {
			i.simWeight = similarity
			i.kwWeight = keyword
		}
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	i := &Index{
		synonyms:  DefaultSynonyms(),
		simWeight: DefaultSimilarityWeight,
		kwWeight:  DefaultKeywordWeight,
		corpus:    buildCorpus(nil),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AddFragments appends fragments and rebuilds the derived structures over
// the full resulting corpus.
func (i *Index) AddFragments(fragments []domain.Fragment) {
	i.mu.Lock()
	defer i.mu.Unlock()

	merged := make([]domain.Fragment, 0, len(i.corpus.fragments)+len(fragments))
	merged = append(merged, i.corpus.fragments...)
	merged = append(merged, fragments...)
	i.corpus = buildCorpus(merged)
}

// Clear drops all fragments and derived structures.
func (i *Index) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.corpus = buildCorpus(nil)
}

// Replace swaps the whole corpus atomically. Unlike Clear followed by
// AddFragments, concurrent readers never observe an empty window.
func (i *Index) Replace(fragments []domain.Fragment) {
	next := buildCorpus(fragments)

	i.mu.Lock()
	i.corpus = next
	i.mu.Unlock()
}

// Size returns the number of indexed fragments.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.corpus.fragments)
}

// Fragments returns a copy of the current corpus, used for snapshots.
func (i *Index) Fragments() []domain.Fragment {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]domain.Fragment, len(i.corpus.fragments))
	copy(out, i.corpus.fragments)
	return out
}

// Search returns the top-k fragments ranked by fused score. An empty query,
// an empty corpus or a filter that matches nothing all yield an empty slice.
func (i *Index) Search(query string, topK int, filters domain.SearchFilters) []domain.RankedFragment {
	i.mu.RLock()
	c := i.corpus
	i.mu.RUnlock()

	if len(c.fragments) == 0 || topK <= 0 {
		return nil
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	expanded := i.synonyms.Expand(tokens)

	allowed := c.allowedSet(filters)
	keyword := make([]float64, len(c.fragments))
	similarity := make([]float64, len(c.fragments))

	qtf := termFrequency(expanded)
	qnorm := 0.0
	qweights := make(map[string]float64, len(qtf))
	for term, freq := range qtf {
		w := float64(freq) * c.idfOf(term)
		qweights[term] = w
		qnorm += w * w
	}
	qnorm = math.Sqrt(qnorm)

	for di := range c.fragments {
		if allowed != nil && !allowed[di] {
			// Excluded fragments sink below every match, preserving the
			// relative ranking of the matching subset.
			keyword[di] = math.Inf(-1)
			similarity[di] = math.Inf(-1)
			continue
		}

		keyword[di] = c.keywordScore(di, qweights)
		similarity[di] = c.cosine(di, qweights, qnorm)
	}

	fused := fuseScores(similarity, keyword, i.simWeight, i.kwWeight)

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(fused))
	for di, s := range fused {
		if !math.IsInf(s, -1) && s > 0 {
			candidates = append(candidates, scored{idx: di, score: s})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]domain.RankedFragment, 0, len(candidates))
	for _, cand := range candidates {
		frag := c.fragments[cand.idx]
		window := ""
		if frag.ParentContent != "" && frag.ParentContent != frag.Content {
			window = frag.ParentContent
		}
		results = append(results, domain.RankedFragment{
			Fragment:      frag,
			Score:         cand.score,
			WindowContent: window,
		})
	}
	return results
}

// keywordScore is the length-normalised TF-IDF overlap between the expanded
// query and one fragment.
func (c *corpus) keywordScore(di int, qweights map[string]float64) float64 {
	if c.docLen[di] == 0 {
		return 0
	}
	score := 0.0
	for term := range qweights {
		if tf := c.tf[di][term]; tf > 0 {
			score += float64(tf) * c.idf[term]
		}
	}
	return score / float64(c.docLen[di])
}

// cosine is the TF-IDF vector cosine similarity between the expanded query
// and one fragment.
func (c *corpus) cosine(di int, qweights map[string]float64, qnorm float64) float64 {
	if qnorm == 0 || c.norms[di] == 0 {
		return 0
	}
	dot := 0.0
	for term, qw := range qweights {
		if tf := c.tf[di][term]; tf > 0 {
			dot += qw * float64(tf) * c.idf[term]
		}
	}
	return dot / (qnorm * c.norms[di])
}

// fuseScores min-max normalises the keyword signal over its finite subset
// and combines the two signals with the configured weights. Negative
// infinity marks filtered-out fragments and survives fusion.
func fuseScores(similarity, keyword []float64, simWeight, kwWeight float64) []float64 {
	minKW, maxKW := math.Inf(1), math.Inf(-1)
	for _, v := range keyword {
		if math.IsInf(v, -1) {
			continue
		}
		if v < minKW {
			minKW = v
		}
		if v > maxKW {
			maxKW = v
		}
	}

	fused := make([]float64, len(similarity))
	for i := range fused {
		if math.IsInf(keyword[i], -1) || math.IsInf(similarity[i], -1) {
			fused[i] = math.Inf(-1)
			continue
		}
		kw := 0.0
		if maxKW > minKW {
			kw = (keyword[i] - minKW) / (maxKW - minKW)
		} else if keyword[i] > 0 {
			kw = 1.0
		}
		fused[i] = simWeight*similarity[i] + kwWeight*kw
	}
	return fused
}

// allowedSet resolves the metadata filter into a fragment-index set.
// Returns nil when the filter matches everything.
func (c *corpus) allowedSet(filters domain.SearchFilters) map[int]bool {
	if filters.Empty() {
		return nil
	}

	allowed := make(map[int]bool)
	for _, source := range filters.Sources {
		for _, di := range c.bySource[source] {
			allowed[di] = true
		}
	}
	for _, cat := range filters.Categories {
		for _, di := range c.byCategory[cat] {
			allowed[di] = true
		}
	}
	return allowed
}

// idfOf returns the corpus IDF for a term, falling back to the smoothed
// maximum for terms the corpus has never seen.
func (c *corpus) idfOf(term string) float64 {
	if v, ok := c.idf[term]; ok {
		return v
	}
	n := float64(len(c.fragments))
	return math.Log((n+1)/1) + 1
}

// buildCorpus derives every index structure from the fragment set.
func buildCorpus(fragments []domain.Fragment) *corpus {
	c := &corpus{
		fragments:  fragments,
		tf:         make([]map[string]int, len(fragments)),
		docLen:     make([]int, len(fragments)),
		norms:      make([]float64, len(fragments)),
		idf:        make(map[string]float64),
		bySource:   make(map[string][]int),
		byCategory: make(map[domain.Category][]int),
	}

	df := make(map[string]int)
	for di, frag := range fragments {
		tokens := Tokenize(frag.Content)
		c.tf[di] = termFrequency(tokens)
		c.docLen[di] = len(tokens)
		for term := range c.tf[di] {
			df[term]++
		}

		c.bySource[frag.Source] = append(c.bySource[frag.Source], di)
		cat := domain.CategoryForFile(frag.Source)
		c.byCategory[cat] = append(c.byCategory[cat], di)
	}

	n := float64(len(fragments))
	for term, freq := range df {
		c.idf[term] = math.Log((n+1)/float64(freq+1)) + 1
	}

	for di := range fragments {
		sum := 0.0
		for term, tf := range c.tf[di] {
			w := float64(tf) * c.idf[term]
			sum += w * w
		}
		c.norms[di] = math.Sqrt(sum)
	}

	return c
}
