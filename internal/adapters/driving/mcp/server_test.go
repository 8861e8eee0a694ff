package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driving"
)

// mockKnowledge implements driving.KnowledgeService.
type mockKnowledge struct {
	results      []domain.RankedFragment
	searchErr    error
	refreshErr   error
	refreshCalls int
	lastFilters  domain.SearchFilters
	lastLimit    int
	status       driving.Status
	links        map[string]string
}

func (m *mockKnowledge) GetRelevantContext(context.Context, string, int, int) (string, error) {
	return "", nil
}

func (m *mockKnowledge) Search(_ context.Context, _ string, topK int, filters domain.SearchFilters) ([]domain.RankedFragment, error) {
	m.lastLimit = topK
	m.lastFilters = filters
	return m.results, m.searchErr
}

func (m *mockKnowledge) RefreshCache(context.Context) error {
	m.refreshCalls++
	return m.refreshErr
}

func (m *mockKnowledge) GetCacheName(context.Context) string { return "" }
func (m *mockKnowledge) InvalidateCache(context.Context)     {}
func (m *mockKnowledge) GetFileLinks() map[string]string     { return m.links }
func (m *mockKnowledge) Status(context.Context) (driving.Status, error) {
	return m.status, nil
}

func TestNewServer(t *testing.T) {
	t.Run("requires a knowledge service", func(t *testing.T) {
		_, err := NewServer(nil)
		assert.ErrorIs(t, err, ErrMissingKnowledgeService)
	})

	t.Run("creates server", func(t *testing.T) {
		server, err := NewServer(&mockKnowledge{})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked fragments with links", func(t *testing.T) {
		mock := &mockKnowledge{
			results: []domain.RankedFragment{{
				Fragment: domain.Fragment{
					Content: "цена квартиры 5 млн",
					Source:  "прайс.pdf",
				},
				Score:         0.91,
				WindowContent: "полный абзац о ценах",
			}},
			links: map[string]string{"прайс.pdf": "https://drive.example.com/1"},
		}
		server, err := NewServer(mock)
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "стоимость", Limit: 3})
		require.NoError(t, err)

		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "прайс.pdf", output.Results[0].Source)
		assert.Equal(t, "https://drive.example.com/1", output.Results[0].Link)
		assert.Equal(t, 0.91, output.Results[0].Score)
		assert.Equal(t, "цена квартиры 5 млн", output.Results[0].Content)
		assert.Equal(t, "полный абзац о ценах", output.Results[0].Context)
	})

	t.Run("applies default limit and filters", func(t *testing.T) {
		mock := &mockKnowledge{}
		server, err := NewServer(mock)
		require.NoError(t, err)

		input := SearchInput{Query: "тест", Sources: []string{"прайс.pdf"}, Categories: []string{"pricing"}}
		_, _, err = server.handleSearch(ctx, nil, input)
		require.NoError(t, err)

		assert.Equal(t, 5, mock.lastLimit)
		assert.Equal(t, []string{"прайс.pdf"}, mock.lastFilters.Sources)
		assert.Equal(t, []domain.Category{domain.CategoryPricing}, mock.lastFilters.Categories)
	})

	t.Run("propagates search failure", func(t *testing.T) {
		server, err := NewServer(&mockKnowledge{searchErr: errors.New("index unavailable")})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "тест"})
		assert.ErrorContains(t, err, "index unavailable")
	})
}

func TestHandleRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes and reports status", func(t *testing.T) {
		mock := &mockKnowledge{
			status: driving.Status{
				IndexedFragments: 42,
				TrackedFiles:     7,
				LastUpdate:       "2026-08-30T05:00:00Z",
			},
		}
		server, err := NewServer(mock)
		require.NoError(t, err)

		_, output, err := server.handleRefresh(ctx, nil, RefreshInput{})
		require.NoError(t, err)

		assert.Equal(t, 1, mock.refreshCalls)
		assert.Equal(t, 42, output.IndexedFragments)
		assert.Equal(t, 7, output.TrackedFiles)
		assert.Equal(t, "2026-08-30T05:00:00Z", output.LastUpdate)
	})

	t.Run("propagates refresh failure", func(t *testing.T) {
		server, err := NewServer(&mockKnowledge{refreshErr: errors.New("listing failed")})
		require.NoError(t, err)

		_, _, err = server.handleRefresh(ctx, nil, RefreshInput{})
		assert.ErrorContains(t, err, "listing failed")
	})
}

// makeReadResourceRequest builds a ReadResourceRequest for the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestResources(t *testing.T) {
	ctx := context.Background()
	mock := &mockKnowledge{
		status: driving.Status{IndexedFragments: 3, TrackedFiles: 2},
		links:  map[string]string{"прайс.pdf": "https://drive.example.com/1"},
	}
	server, err := NewServer(mock)
	require.NoError(t, err)

	t.Run("status", func(t *testing.T) {
		result, err := server.handleStatusResource(ctx, makeReadResourceRequest(uriScheme+"status"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		assert.Equal(t, uriScheme+"status", result.Contents[0].URI)
		assert.Contains(t, result.Contents[0].Text, `"IndexedFragments":3`)
	})

	t.Run("files", func(t *testing.T) {
		result, err := server.handleFilesResource(ctx, makeReadResourceRequest(uriScheme+"files"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)

		assert.Contains(t, result.Contents[0].Text, "https://drive.example.com/1")
	})
}
