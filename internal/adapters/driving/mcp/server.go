// Package mcp provides a Model Context Protocol server adapter so agent
// hosts can query and refresh the knowledge engine.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brokerhub/knowbot/internal/core/ports/driving"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingKnowledgeService is returned when no knowledge service is
// provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")

// Server is the MCP server for knowbot.
type Server struct {
	knowledge driving.KnowledgeService
	server    *mcp.Server
}

// NewServer creates a new MCP server backed by the knowledge service.
func NewServer(knowledge driving.KnowledgeService) (*Server, error) {
	if knowledge == nil {
		return nil, ErrMissingKnowledgeService
	}

	impl := &mcp.Implementation{
		Name:    "knowbot",
		Version: Version,
	}

	s := &Server{
		knowledge: knowledge,
		server:    mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
