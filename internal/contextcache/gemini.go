package contextcache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/logger"
)

// DefaultModel is the generation model the cached content is bound to.
const DefaultModel = "gemini-2.0-flash"

// minCacheChars is the rough lower bound below which the provider rejects
// cached content. Corpora smaller than this skip the upload.
const minCacheChars = 4096

var _ driven.ContextCache = (*Gemini)(nil)

// Gemini uploads the corpus as provider-side cached content so generation
// requests can reference it by name instead of resending every document.
type Gemini struct {
	client *genai.Client
	model  string
	ttl    time.Duration
}

// GeminiOption configures the Gemini context cache.
type GeminiOption func(*Gemini)

// WithModel overrides the model the cached content is created for.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTTL overrides the provider-side lifetime of the cached content.
func WithTTL(ttl time.Duration) GeminiOption {
	return func(g *Gemini) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewGemini creates a Gemini-backed context cache using the given API key.
func NewGemini(ctx context.Context, apiKey string, ttl time.Duration, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required: %w", domain.ErrInvalidInput)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	g := &Gemini{
		client: client,
		model:  DefaultModel,
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Enabled always reports true once constructed.
func (*Gemini) Enabled() bool {
	return true
}

// Create uploads the documents as a single cached-content blob and returns
// its provider-assigned name. Documents are concatenated in a stable order
// with source headers so the model can attribute answers.
func (g *Gemini) Create(ctx context.Context, files []domain.RemoteFile, contents map[string]string) (string, error) {
	text := assembleCorpus(files, contents)
	if len(text) < minCacheChars {
		logger.Info("Corpus too small for context caching (%d chars), skipping upload", len(text))
		return "", domain.ErrContextCacheUnavailable
	}

	cached, err := g.client.Caches.Create(ctx, g.model, &genai.CreateCachedContentConfig{
		Contents: []*genai.Content{
			genai.NewContentFromText(text, genai.RoleUser),
		},
		TTL: g.ttl,
	})
	if err != nil {
		return "", fmt.Errorf("creating cached content: %w", err)
	}

	logger.Info("Created context cache %s (%d documents, %d chars)", cached.Name, len(files), len(text))
	return cached.Name, nil
}

// Delete removes the cached content. A failure is logged, not propagated:
// expired handles are garbage-collected by the provider anyway.
func (g *Gemini) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if _, err := g.client.Caches.Delete(ctx, handle, nil); err != nil {
		logger.Warn("Failed to delete context cache %s: %v", handle, err)
		return fmt.Errorf("deleting cached content: %w", err)
	}
	return nil
}

// assembleCorpus joins document texts in name order, each prefixed with its
// source header, matching the format used for index-retrieved fragments.
func assembleCorpus(files []domain.RemoteFile, contents map[string]string) string {
	sorted := make([]domain.RemoteFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, f := range sorted {
		text, ok := contents[f.ID]
		if !ok || text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "SOURCE: %s\n%s", f.Name, text)
	}
	return b.String()
}
