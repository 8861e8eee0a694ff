// Package filesystem implements the FileStore port over a local directory.
// Used for offline development and tests; supports change notification via
// fsnotify so edits to the corpus trigger an on-demand refresh.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/logger"
)

// debounceInterval coalesces bursts of filesystem events into one refresh
// trigger.
const debounceInterval = 2 * time.Second

// mimeByExtension maps corpus file extensions to MIME types.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Ensure Store implements both interfaces.
var (
	_ driven.FileStore = (*Store)(nil)
	_ driven.Watcher   = (*Store)(nil)
)

// Store serves documents from a local directory.
type Store struct {
	root string
}

// NewStore creates a filesystem-backed file store rooted at dir.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("checking corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, domain.ErrInvalidInput)
	}
	return &Store{root: dir}, nil
}

// ListFiles returns metadata for every supported file under the root.
func (s *Store) ListFiles(_ context.Context) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		mimeType, ok := mimeByExtension[strings.ToLower(filepath.Ext(d.Name()))]
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.RemoteFile{
			ID:           rel,
			Name:         d.Name(),
			MIMEType:     mimeType,
			ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
			Size:         info.Size(),
			WebViewLink:  "file://" + path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus directory: %w", err)
	}

	return files, nil
}

// Download returns the file's path directly; the corpus is already local.
func (s *Store) Download(_ context.Context, file domain.RemoteFile) (string, error) {
	path := filepath.Join(s.root, file.ID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close() error {
	return nil
}

// Watch emits an event whenever the corpus directory changes. Bursts of
// events are debounced into one notification.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.root, err)
	}

	events := make(chan struct{}, 1)

	go func() {
		defer close(events)
		defer watcher.Close()

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounceInterval)
					timerCh = timer.C
				} else {
					timer.Reset(debounceInterval)
				}

			case <-timerCh:
				timer = nil
				timerCh = nil
				select {
				case events <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Corpus watcher error: %v", err)
			}
		}
	}()

	return events, nil
}
