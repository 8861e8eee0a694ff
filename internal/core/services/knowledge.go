package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/core/ports/driving"
	"github.com/brokerhub/knowbot/internal/logger"
)

// DefaultTTL is the lifetime of the remote context cache handle.
const DefaultTTL = time.Hour

// DefaultWarningMargin is how long before TTL expiry a handle read triggers a
// background refresh.
const DefaultWarningMargin = 10 * time.Minute

// DefaultClockSkewMargin is the grace period past TTL before the handle is
// proactively torn down. Covers clock drift between us and the provider.
const DefaultClockSkewMargin = 2 * time.Minute

// DefaultWorkers is the number of concurrent download/extraction workers per
// refresh cycle.
const DefaultWorkers = 4

// DefaultMaxFileSize is the per-file size cap. Larger files are skipped.
const DefaultMaxFileSize = 20 * 1024 * 1024

// contextSeparator joins formatted context entries.
const contextSeparator = "\n\n"

// Ensure KnowledgeManager implements the interface.
var _ driving.KnowledgeService = (*KnowledgeManager)(nil)

// KnowledgeManager orchestrates the refresh lifecycle: it lists the remote
// folder, decides what must be reprocessed versus reused from the fragment
// cache, rebuilds the search index and manages the optional remote context
// cache handle. One instance owns all refresh state; queries and refreshes
// may run concurrently.
type KnowledgeManager struct {
	files     driven.FileStore
	store     driven.Store
	index     driven.SearchIndex
	processor driven.Processor
	registry  driven.ExtractorRegistry
	ctxCache  driven.ContextCache

	ttl          time.Duration
	warnMargin   time.Duration
	skewMargin   time.Duration
	maxFileSize  int64
	workers      int
	snapshotPath string

	mu            sync.Mutex
	isUpdating    bool
	lastUpdate    time.Time
	lastSignature string
	cacheHandle   string
	fileLinks     map[string]string
	trackedFiles  int
}

// Option configures a KnowledgeManager.
type Option func(*KnowledgeManager)

// WithTTL sets the context cache handle lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *KnowledgeManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithWarningMargin sets the pre-expiry window that triggers a background
// refresh.
func WithWarningMargin(d time.Duration) Option {
	return func(m *KnowledgeManager) {
		if d > 0 {
			m.warnMargin = d
		}
	}
}

// WithClockSkewMargin sets the post-expiry grace period before proactive
// invalidation.
func WithClockSkewMargin(d time.Duration) Option {
	return func(m *KnowledgeManager) {
		if d > 0 {
			m.skewMargin = d
		}
	}
}

// WithWorkers sets the number of concurrent download/extraction workers.
func WithWorkers(n int) Option {
	return func(m *KnowledgeManager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithMaxFileSize sets the per-file size cap in bytes.
func WithMaxFileSize(n int64) Option {
	return func(m *KnowledgeManager) {
		if n > 0 {
			m.maxFileSize = n
		}
	}
}

// WithSnapshotPath enables index snapshot persistence at the given path.
func WithSnapshotPath(path string) Option {
	return func(m *KnowledgeManager) {
		m.snapshotPath = path
	}
}

// NewKnowledgeManager creates a knowledge manager. The context cache may be
// a no-op implementation; the local index path never branches on it beyond
// the Enabled check.
func NewKnowledgeManager(
	files driven.FileStore,
	store driven.Store,
	index driven.SearchIndex,
	processor driven.Processor,
	registry driven.ExtractorRegistry,
	ctxCache driven.ContextCache,
	opts ...Option,
) *KnowledgeManager {
	m := &KnowledgeManager{
		files:       files,
		store:       store,
		index:       index,
		processor:   processor,
		registry:    registry,
		ctxCache:    ctxCache,
		ttl:         DefaultTTL,
		warnMargin:  DefaultWarningMargin,
		skewMargin:  DefaultClockSkewMargin,
		maxFileSize: DefaultMaxFileSize,
		workers:     DefaultWorkers,
		fileLinks:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RestoreSnapshot loads the last persisted index snapshot so queries work
// before the first refresh completes. A missing or stale snapshot is not an
// error; the next refresh rebuilds from source.
func (m *KnowledgeManager) RestoreSnapshot() {
	if m.snapshotPath == "" {
		return
	}
	if err := m.index.LoadSnapshot(m.snapshotPath); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Failed to load index snapshot: %v", err)
		}
		return
	}
	logger.Info("Restored index snapshot: %d fragments", m.index.Size())
}

// RefreshCache synchronises the index with the remote folder. Idempotent:
// an unchanged listing is a no-op, and a call made while a cycle is already
// in flight coalesces into it.
func (m *KnowledgeManager) RefreshCache(ctx context.Context) error {
	if err := m.refresh(ctx); err != nil {
		if errors.Is(err, domain.ErrRefreshInProgress) {
			logger.Debug("Refresh already in flight, coalescing")
			return nil
		}
		return err
	}
	return nil
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (m *KnowledgeManager) refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.isUpdating {
		m.mu.Unlock()
		return domain.ErrRefreshInProgress
	}
	m.isUpdating = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isUpdating = false
		m.mu.Unlock()
	}()

	logger.Section("Knowledge refresh")

	// 1. List and check for change
	listing, err := m.files.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	signature := domain.SignatureSetHash(listing)

	m.mu.Lock()
	unchanged := signature == m.lastSignature && m.index.Size() > 0
	m.mu.Unlock()

	if unchanged {
		logger.Info("Remote listing unchanged (%d files), skipping refresh", len(listing))
		return nil
	}

	// 2. Filter unsupported/oversized files and deduplicate OCR siblings
	eligible := m.filterFiles(listing)
	logger.Info("Processing %d of %d listed files", len(eligible), len(listing))

	// 3. Gather fragments, reusing the fragment cache where the file
	// version is unchanged
	fragments, contents, hits, err := m.gatherFragments(ctx, eligible)
	if err != nil {
		return err
	}

	if len(fragments) == 0 && len(eligible) > 0 {
		return fmt.Errorf("refresh: no file could be processed")
	}
	logger.Info("Collected %d fragments (%d cache hits of %d files)", len(fragments), hits, len(eligible))

	// 4. Swap the index wholesale and persist the startup snapshot
	m.index.Replace(fragments)
	if m.snapshotPath != "" {
		if err := m.index.SaveSnapshot(m.snapshotPath); err != nil {
			logger.Warn("Failed to save index snapshot: %v", err)
		}
	}

	// 5. Recreate the remote context cache. Degrades gracefully: a failure
	// here leaves the local index authoritative.
	handle := m.recreateContextCache(ctx, eligible, contents)

	// 6. Record state
	links := make(map[string]string, len(listing))
	for _, f := range listing {
		if f.WebViewLink != "" {
			links[domain.OCROriginalName(f.Name)] = f.WebViewLink
		}
	}

	m.mu.Lock()
	m.lastUpdate = time.Now()
	m.lastSignature = signature
	m.cacheHandle = handle
	m.fileLinks = links
	m.trackedFiles = len(listing)
	m.mu.Unlock()

	logger.Info("Refresh complete: %d fragments indexed", m.index.Size())
	return nil
}

// filterFiles drops unsupported and oversized files, and for every source
// present both as an original and as an OCR-derived sibling keeps only the
// OCR rendition.
func (m *KnowledgeManager) filterFiles(listing []domain.RemoteFile) []domain.RemoteFile {
	ocrOriginals := make(map[string]bool)
	for _, f := range listing {
		if domain.IsOCRName(f.Name) {
			ocrOriginals[domain.OCROriginalName(f.Name)] = true
		}
	}

	var eligible []domain.RemoteFile
	for _, f := range listing {
		if !m.registry.Supported(f.EffectiveMIMEType()) {
			logger.Debug("Skipping %s: unsupported type %s", f.Name, f.MIMEType)
			continue
		}
		if m.maxFileSize > 0 && f.Size > m.maxFileSize {
			logger.Warn("Skipping %s: %d bytes exceeds size cap", f.Name, f.Size)
			continue
		}
		if !domain.IsOCRName(f.Name) && ocrOriginals[f.Name] {
			logger.Debug("Skipping %s: OCR sibling present", f.Name)
			continue
		}
		eligible = append(eligible, f)
	}
	return eligible
}

// fileResult carries one worker's outcome, keyed by listing position so the
// final fragment order is deterministic.
type fileResult struct {
	fragments []domain.Fragment
	content   string
	cacheHit  bool
}

// gatherFragments resolves every eligible file to its fragment set, via the
// fragment cache on version match or download plus extraction on miss. The
// download/extraction work runs on a bounded worker pool so a refresh does
// not monopolise the process.
func (m *KnowledgeManager) gatherFragments(
	ctx context.Context,
	eligible []domain.RemoteFile,
) ([]domain.Fragment, map[string]string, int, error) {
	results := make([]fileResult, len(eligible))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < m.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = m.resolveFile(ctx, eligible[i])
			}
		}()
	}

	for i := range eligible {
		select {
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return nil, nil, 0, ctx.Err()
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	var fragments []domain.Fragment
	contents := make(map[string]string, len(eligible))
	hits := 0
	for i, r := range results {
		fragments = append(fragments, r.fragments...)
		if r.cacheHit {
			hits++
		}
		if text := r.content; text != "" {
			contents[eligible[i].ID] = text
		}
	}
	return fragments, contents, hits, nil
}

// resolveFile returns the fragment set for one file version. Failures skip
// the file; the refresh continues with the rest.
func (m *KnowledgeManager) resolveFile(ctx context.Context, file domain.RemoteFile) fileResult {
	key := file.CacheKey()

	cached, err := m.store.GetFragments(ctx, key)
	if err == nil {
		logger.Debug("Fragment cache hit: %s", file.Name)
		return fileResult{fragments: cached, content: assembleText(cached), cacheHit: true}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Fragment cache read failed for %s: %v", file.Name, err)
	}

	path, err := m.files.Download(ctx, file)
	if err != nil {
		logger.Warn("Failed to download %s: %v", file.Name, err)
		return fileResult{}
	}
	if path == "" {
		logger.Debug("Skipping %s: not materialised", file.Name)
		return fileResult{}
	}

	fragments, err := m.processor.Process(path, file.EffectiveMIMEType(), file.Name)
	if err != nil {
		logger.Warn("Failed to process %s: %v", file.Name, err)
		return fileResult{}
	}
	if len(fragments) == 0 {
		logger.Debug("Skipping %s: no usable text", file.Name)
		return fileResult{}
	}

	source := fragments[0].Source
	if err := m.store.PutFragments(ctx, key, source, fragments); err != nil {
		logger.Warn("Failed to cache fragments for %s: %v", file.Name, err)
	}

	return fileResult{fragments: fragments, content: assembleText(fragments)}
}

// assembleText reconstructs a document's text from its fragments by joining
// distinct parent paragraphs in order. Used for the context cache upload.
func assembleText(fragments []domain.Fragment) string {
	var b strings.Builder
	var prev string
	for _, f := range fragments {
		para := f.ParentContent
		if para == "" {
			para = f.Content
		}
		if para == prev {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(para)
		prev = para
	}
	return b.String()
}

// recreateContextCache tears down the previous handle and uploads the fresh
// corpus. Any failure returns an empty handle; the refresh still succeeds.
func (m *KnowledgeManager) recreateContextCache(
	ctx context.Context,
	files []domain.RemoteFile,
	contents map[string]string,
) string {
	if !m.ctxCache.Enabled() {
		return ""
	}

	m.mu.Lock()
	previous := m.cacheHandle
	m.mu.Unlock()

	if previous != "" {
		if err := m.ctxCache.Delete(ctx, previous); err != nil {
			logger.Debug("Failed to delete stale context cache %s: %v", previous, err)
		}
	}

	handle, err := m.ctxCache.Create(ctx, files, contents)
	if err != nil {
		if !errors.Is(err, domain.ErrContextCacheUnavailable) {
			logger.Warn("Context cache creation failed, continuing index-only: %v", err)
		}
		return ""
	}
	return handle
}

// GetRelevantContext returns a formatted context block for the query, served
// from the response cache when an identical normalised query was answered
// before.
func (m *KnowledgeManager) GetRelevantContext(ctx context.Context, query string, topK, windowSize int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	if cached, err := m.store.GetResponse(ctx, query); err == nil {
		logger.Debug("Response cache hit")
		return cached, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Response cache read failed: %v", err)
	}

	ranked := m.index.Search(query, topK, domain.SearchFilters{})
	if len(ranked) == 0 {
		return "", nil
	}

	links := m.GetFileLinks()

	entries := make([]string, 0, len(ranked))
	for _, r := range ranked {
		text := r.Fragment.Content
		if windowSize > 0 && r.WindowContent != "" {
			text = r.WindowContent
		}

		header := "SOURCE: " + r.Fragment.Source
		if link, ok := links[r.Fragment.Source]; ok {
			header += " (Link: " + link + ")"
		}
		entries = append(entries, header+"\nCONTENT: "+text)
	}
	response := strings.Join(entries, contextSeparator)

	if err := m.store.PutResponse(ctx, query, response); err != nil {
		logger.Warn("Failed to cache response: %v", err)
	}
	return response, nil
}

// Search returns ranked fragments without formatting.
func (m *KnowledgeManager) Search(_ context.Context, query string, topK int, filters domain.SearchFilters) ([]domain.RankedFragment, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	return m.index.Search(query, topK, filters), nil
}

// GetCacheName returns the remote context cache handle while it is within
// its TTL. Any read past the warning threshold triggers a background
// refresh; past expiry plus the skew margin it also proactively
// invalidates.
func (m *KnowledgeManager) GetCacheName(ctx context.Context) string {
	m.mu.Lock()
	handle := m.cacheHandle
	lastUpdate := m.lastUpdate
	m.mu.Unlock()

	if handle == "" || lastUpdate.IsZero() {
		return ""
	}

	age := time.Since(lastUpdate)
	if age < m.ttl-m.warnMargin {
		return handle
	}

	// Any read at or past the warning threshold kicks off a rebuild, so a
	// handle that went stale between reads still gets replaced without
	// waiting for the daily schedule.
	go func() {
		if err := m.RefreshCache(context.Background()); err != nil {
			logger.Warn("Background refresh failed: %v", err)
		}
	}()

	switch {
	case age >= m.ttl+m.skewMargin:
		logger.Info("Context cache handle expired, invalidating")
		m.InvalidateCache(ctx)
		return ""

	case age >= m.ttl:
		return ""
	}

	logger.Debug("Context cache nearing expiry, refreshing in background")
	return handle
}

// InvalidateCache tears down the remote context cache handle. Best effort:
// the provider garbage-collects expired content anyway. The local index is
// untouched.
func (m *KnowledgeManager) InvalidateCache(ctx context.Context) {
	m.mu.Lock()
	handle := m.cacheHandle
	m.cacheHandle = ""
	m.mu.Unlock()

	if handle == "" {
		return
	}
	if err := m.ctxCache.Delete(ctx, handle); err != nil {
		logger.Debug("Context cache deletion failed: %v", err)
	}
}

// GetFileLinks maps source file names to their web URLs for citation.
func (m *KnowledgeManager) GetFileLinks() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := make(map[string]string, len(m.fileLinks))
	for name, url := range m.fileLinks {
		links[name] = url
	}
	return links
}

// Status reports engine state for diagnostics.
func (m *KnowledgeManager) Status(ctx context.Context) (driving.Status, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return driving.Status{}, fmt.Errorf("store stats: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	status := driving.Status{
		IndexedFragments: m.index.Size(),
		TrackedFiles:     m.trackedFiles,
		Updating:         m.isUpdating,
		CacheHandle:      m.cacheHandle,
		FragmentEntries:  stats.FragmentEntries,
		Fragments:        stats.Fragments,
		Responses:        stats.Responses,
	}
	if !m.lastUpdate.IsZero() {
		status.LastUpdate = m.lastUpdate.Format(time.RFC3339)
	}
	return status, nil
}

// SourceNames returns the distinct source names currently indexed, sorted.
// Used by the TUI filter picker.
func (m *KnowledgeManager) SourceNames() []string {
	links := m.GetFileLinks()
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
