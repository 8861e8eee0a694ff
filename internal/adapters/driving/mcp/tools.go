package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the question to find knowledge-base fragments for"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of fragments to return (default 5)"`
	Sources    []string `json:"sources,omitempty" jsonschema:"restrict to the named source files"`
	Categories []string `json:"categories,omitempty" jsonschema:"restrict to document categories: pricing, promo, regulation, general"`
}

// SearchOutput is the output schema for the search_knowledge tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single ranked fragment.
type SearchResultOutput struct {
	Source  string  `json:"source"`
	Link    string  `json:"link,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
	Context string  `json:"context,omitempty"`
}

// RefreshInput is the input schema for the refresh_knowledge tool.
type RefreshInput struct{}

// RefreshOutput is the output schema for the refresh_knowledge tool.
type RefreshOutput struct {
	IndexedFragments int    `json:"indexed_fragments"`
	TrackedFiles     int    `json:"tracked_files"`
	LastUpdate       string `json:"last_update,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the partner-network knowledge base for relevant document fragments",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh_knowledge",
		Description: "Synchronise the knowledge base with the source folder",
	}, s.handleRefresh)
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	filters := domain.SearchFilters{Sources: input.Sources}
	for _, c := range input.Categories {
		filters.Categories = append(filters.Categories, domain.Category(c))
	}

	results, err := s.knowledge.Search(ctx, input.Query, limit, filters)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	links := s.knowledge.GetFileLinks()

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			Source:  r.Fragment.Source,
			Link:    links[r.Fragment.Source],
			Score:   r.Score,
			Content: r.Fragment.Content,
			Context: r.WindowContent,
		}
	}

	return nil, output, nil
}

// handleRefresh handles the refresh_knowledge tool invocation.
func (s *Server) handleRefresh(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RefreshInput,
) (*mcp.CallToolResult, RefreshOutput, error) {
	if err := s.knowledge.RefreshCache(ctx); err != nil {
		return nil, RefreshOutput{}, err
	}

	status, err := s.knowledge.Status(ctx)
	if err != nil {
		return nil, RefreshOutput{}, err
	}

	return nil, RefreshOutput{
		IndexedFragments: status.IndexedFragments,
		TrackedFiles:     status.TrackedFiles,
		LastUpdate:       status.LastUpdate,
	}, nil
}
