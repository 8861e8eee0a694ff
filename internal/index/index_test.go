package index

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

func testFragments() []domain.Fragment {
	return []domain.Fragment{
		{ID: "a", Content: "цена квартиры 5 млн", Source: "x.pdf", ParentContent: "цена квартиры 5 млн"},
		{ID: "b", Content: "скидка на акции", Source: "y.pdf", ParentContent: "скидка на акции"},
		{ID: "c", Content: "регламент работы партнёрской сети", Source: "Регламент.pdf", ParentContent: "регламент работы партнёрской сети, полный текст раздела"},
	}
}

func TestSearch_SynonymExpansion(t *testing.T) {
	// Query uses "стоимость", fragment says "цена": the synonym table must
	// bridge the paraphrase.
	idx := New()
	idx.AddFragments(testFragments())

	results := idx.Search("стоимость квартиры", 1, domain.SearchFilters{})
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Fragment.ID)
	assert.False(t, math.IsInf(results[0].Score, 0))
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	idx := New()
	assert.Empty(t, idx.Search("цена", 5, domain.SearchFilters{}))
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())
	assert.Empty(t, idx.Search("   ...  ", 5, domain.SearchFilters{}))
}

func TestSearch_SourceFilter(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())

	t.Run("restricts to matching sources", func(t *testing.T) {
		results := idx.Search("скидка цена", 5, domain.SearchFilters{Sources: []string{"y.pdf"}})
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].Fragment.ID)
	})

	t.Run("impossible filter yields empty result", func(t *testing.T) {
		results := idx.Search("цена", 5, domain.SearchFilters{Sources: []string{"absent.pdf"}})
		assert.Empty(t, results)
	})
}

func TestSearch_CategoryFilter(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())

	results := idx.Search("регламент скидка", 5, domain.SearchFilters{
		Categories: []domain.Category{domain.CategoryRegulation},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].Fragment.ID)
}

func TestSearch_FilteredNeverOutranksMatching(t *testing.T) {
	// Fragment b is the best match for the query, but the filter excludes
	// it; a weaker matching fragment must still win.
	idx := New()
	idx.AddFragments(testFragments())

	results := idx.Search("скидка на акции цена", 5, domain.SearchFilters{Sources: []string{"x.pdf"}})
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Fragment.ID)
	for _, r := range results {
		assert.False(t, math.IsInf(r.Score, 0), "returned scores must be finite")
	}
}

func TestSearch_TopKBound(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())

	results := idx.Search("цена скидка регламент квартиры акции сети", 2, domain.SearchFilters{})
	assert.LessOrEqual(t, len(results), 2)
}

func TestSearch_WindowContent(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())

	results := idx.Search("регламент сети", 1, domain.SearchFilters{})
	require.Len(t, results, 1)
	// Parent differs from content, so the window is populated
	assert.Equal(t, "регламент работы партнёрской сети, полный текст раздела", results[0].WindowContent)

	results = idx.Search("цена квартиры", 1, domain.SearchFilters{})
	require.Len(t, results, 1)
	// Parent equals content: no window annotation
	assert.Empty(t, results[0].WindowContent)
}

func TestClearAndReplace(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments())
	require.Equal(t, 3, idx.Size())

	idx.Clear()
	assert.Zero(t, idx.Size())
	assert.Empty(t, idx.Search("цена", 5, domain.SearchFilters{}))

	idx.Replace(testFragments()[:2])
	assert.Equal(t, 2, idx.Size())
}

func TestAddFragments_RebuildsOverFullCorpus(t *testing.T) {
	idx := New()
	idx.AddFragments(testFragments()[:1])
	idx.AddFragments(testFragments()[1:])

	assert.Equal(t, 3, idx.Size())
	results := idx.Search("скидка", 5, domain.SearchFilters{})
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Fragment.ID)
}

func TestFuseScores(t *testing.T) {
	t.Run("negative infinity survives fusion", func(t *testing.T) {
		sim := []float64{0.9, math.Inf(-1)}
		kw := []float64{0.5, math.Inf(-1)}
		fused := fuseScores(sim, kw, 0.6, 0.4)
		assert.False(t, math.IsInf(fused[0], 0))
		assert.True(t, math.IsInf(fused[1], -1))
	})

	t.Run("weights applied after min-max", func(t *testing.T) {
		sim := []float64{0.0, 1.0}
		kw := []float64{2.0, 4.0}
		fused := fuseScores(sim, kw, 0.6, 0.4)
		assert.InDelta(t, 0.0, fused[0], 1e-9)
		assert.InDelta(t, 1.0, fused[1], 1e-9)
	})

	t.Run("degenerate keyword range", func(t *testing.T) {
		sim := []float64{0.5, 0.5}
		kw := []float64{3.0, 3.0}
		fused := fuseScores(sim, kw, 0.6, 0.4)
		assert.InDelta(t, fused[0], fused[1], 1e-9)
		assert.False(t, math.IsInf(fused[0], 0))
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	idx := New()
	idx.AddFragments(testFragments())
	require.NoError(t, idx.SaveSnapshot(path))

	restored := New()
	require.NoError(t, restored.LoadSnapshot(path))
	assert.Equal(t, 3, restored.Size())

	results := restored.Search("стоимость квартиры", 1, domain.SearchFilters{})
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Fragment.ID)
}

func TestSnapshot_Missing(t *testing.T) {
	idx := New()
	err := idx.LoadSnapshot(filepath.Join(t.TempDir(), "absent.snapshot"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshot_EmptyIndex(t *testing.T) {
	idx := New()
	err := idx.SaveSnapshot(filepath.Join(t.TempDir(), "index.snapshot"))
	assert.ErrorIs(t, err, domain.ErrNoIndex)
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Цена — 5 млн руб.! (скидка 3%)")
	assert.Equal(t, []string{"цена", "5", "млн", "руб", "скидка", "3"}, got)
}

func TestSynonymTable_Expand(t *testing.T) {
	table := SynonymTable{"цена": {"стоимость"}}

	t.Run("adds synonyms once", func(t *testing.T) {
		got := table.Expand([]string{"цена", "стоимость"})
		assert.Equal(t, []string{"цена", "стоимость"}, got)
	})

	t.Run("no match passes through", func(t *testing.T) {
		got := table.Expand([]string{"ипотека"})
		assert.Equal(t, []string{"ипотека"}, got)
	})

	t.Run("empty table", func(t *testing.T) {
		got := SynonymTable{}.Expand([]string{"цена"})
		assert.Equal(t, []string{"цена"}, got)
	})
}
