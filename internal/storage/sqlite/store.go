// Package sqlite implements the persistent store: the durable fragment
// cache and the bounded response cache, both backed by one SQLite database.
package sqlite

import (
	"container/list"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/storage/sqlite/migrations"
)

// DefaultResponseCacheSize bounds the response cache.
const DefaultResponseCacheSize = 100

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// Store is the SQLite-backed persistent store. The response cache keeps an
// in-memory LRU front mirrored against the durable rows: eviction removes
// the entry from both sides so they never diverge.
type Store struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	closed  bool
	lru     *list.List               // front = most recent, values are query hashes
	entries map[string]*list.Element // query hash -> node
	maxSize int
}

// Option configures the store.
type Option func(*Store)

// WithResponseCacheSize sets the response cache bound.
func WithResponseCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// NewStore creates a SQLite store under dataDir. If dataDir is empty it
// defaults to ~/.knowbot/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".knowbot", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// WAL keeps the query path readable while a refresh writes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		lru:     list.New(),
		entries: make(map[string]*list.Element),
		maxSize: DefaultResponseCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.loadResponseIndex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading response cache index: %w", err)
	}

	return s, nil
}

// Close closes the database connection. Operations after Close return
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

// guard rejects calls on a closed store before they reach the driver, which
// would otherwise surface an opaque "database is closed" error.
func (s *Store) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Fragment cache ====================

// GetFragments returns the cached fragment set for a file version.
func (s *Store) GetFragments(ctx context.Context, fileHash string) ([]domain.Fragment, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT fragment_id, source, chunk_index, total_chunks, content, parent_content, is_ocr
		FROM fragment_cache
		WHERE file_hash = ?
		ORDER BY chunk_index
	`, fileHash)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var fragments []domain.Fragment
	for rows.Next() {
		var f domain.Fragment
		var isOCR int
		if err := rows.Scan(&f.ID, &f.Source, &f.ChunkIndex, &f.TotalChunks, &f.Content, &f.ParentContent, &isOCR); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		f.IsOCR = isOCR != 0
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	if len(fragments) == 0 {
		return nil, domain.ErrNotFound
	}
	return fragments, nil
}

// PutFragments stores the ordered fragment set for a file version. The
// write replaces any previous set under the same key atomically.
func (s *Store) PutFragments(ctx context.Context, fileHash, source string, fragments []domain.Fragment) error {
	if err := s.guard(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragment_cache WHERE file_hash = ?", fileHash); err != nil {
		return fmt.Errorf("clearing fragments: %w", err)
	}

	for _, f := range fragments {
		isOCR := 0
		if f.IsOCR {
			isOCR = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fragment_cache
				(file_hash, chunk_index, fragment_id, source, total_chunks, content, parent_content, is_ocr)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, fileHash, f.ChunkIndex, f.ID, source, f.TotalChunks, f.Content, f.ParentContent, isOCR)
		if err != nil {
			return fmt.Errorf("inserting fragment %d: %w", f.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fragments: %w", err)
	}
	return nil
}

// ==================== Response cache ====================

// NormaliseQuery canonicalises query text for cache keying: lowercase with
// collapsed whitespace.
func NormaliseQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func queryHash(normalised string) string {
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

// GetResponse returns the cached context string for a query and refreshes
// its LRU position on both sides.
func (s *Store) GetResponse(ctx context.Context, query string) (string, error) {
	hash := queryHash(NormaliseQuery(query))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", domain.ErrStoreClosed
	}
	elem, ok := s.entries[hash]
	if ok {
		s.lru.MoveToFront(elem)
	}
	s.mu.Unlock()

	if !ok {
		return "", domain.ErrNotFound
	}

	var response string
	err := s.db.QueryRowContext(ctx,
		"SELECT response FROM response_cache WHERE query_hash = ?", hash,
	).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		// Memory index ahead of the store; treat as a miss and heal
		s.mu.Lock()
		if elem, ok := s.entries[hash]; ok {
			s.lru.Remove(elem)
			delete(s.entries, hash)
		}
		s.mu.Unlock()
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying response: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE response_cache SET last_used = CURRENT_TIMESTAMP WHERE query_hash = ?", hash,
	); err != nil {
		return "", fmt.Errorf("touching response: %w", err)
	}

	return response, nil
}

// PutResponse stores a produced context string. When the cache is full the
// least recently used entry is evicted from both the memory index and the
// durable store before insertion.
func (s *Store) PutResponse(ctx context.Context, query, response string) error {
	normalised := NormaliseQuery(query)
	hash := queryHash(normalised)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}

	if elem, ok := s.entries[hash]; ok {
		s.lru.MoveToFront(elem)
		if _, err := s.db.ExecContext(ctx, `
			UPDATE response_cache SET response = ?, last_used = CURRENT_TIMESTAMP WHERE query_hash = ?
		`, response, hash); err != nil {
			return fmt.Errorf("updating response: %w", err)
		}
		return nil
	}

	// Evict before insert so the bound is never exceeded
	if s.lru.Len() >= s.maxSize {
		oldest := s.lru.Back()
		if oldest != nil {
			oldHash := oldest.Value.(string)
			if _, err := s.db.ExecContext(ctx,
				"DELETE FROM response_cache WHERE query_hash = ?", oldHash,
			); err != nil {
				return fmt.Errorf("evicting response: %w", err)
			}
			s.lru.Remove(oldest)
			delete(s.entries, oldHash)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO response_cache (query_hash, query, response) VALUES (?, ?, ?)
	`, hash, normalised, response); err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}

	s.entries[hash] = s.lru.PushFront(hash)
	return nil
}

// loadResponseIndex rebuilds the in-memory LRU front from the durable rows
// at startup, trimming any overflow left by a previous run with a larger
// bound.
func (s *Store) loadResponseIndex() error {
	rows, err := s.db.Query("SELECT query_hash FROM response_cache ORDER BY last_used DESC")
	if err != nil {
		return err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return err
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range hashes {
		if i >= s.maxSize {
			if _, err := s.db.Exec("DELETE FROM response_cache WHERE query_hash = ?", h); err != nil {
				return err
			}
			continue
		}
		s.entries[h] = s.lru.PushBack(h)
	}
	return nil
}

// ==================== Stats ====================

// Stats returns entry counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (driven.StoreStats, error) {
	var stats driven.StoreStats
	if err := s.guard(); err != nil {
		return stats, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT file_hash), COUNT(*) FROM fragment_cache")
	if err := row.Scan(&stats.FragmentEntries, &stats.Fragments); err != nil {
		return stats, fmt.Errorf("counting fragments: %w", err)
	}

	row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM response_cache")
	if err := row.Scan(&stats.Responses); err != nil {
		return stats, fmt.Errorf("counting responses: %w", err)
	}

	return stats, nil
}
