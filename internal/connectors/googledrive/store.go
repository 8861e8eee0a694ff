// Package googledrive implements the FileStore port against the Google
// Drive v3 API: folder listing with pagination and download with export of
// Google-native document types.
package googledrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/brokerhub/knowbot/internal/core/domain"
	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/logger"
)

// Google Workspace MIME types that require export.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// DefaultMaxDownloadSize caps downloaded content (20MB).
const DefaultMaxDownloadSize = 20 * 1024 * 1024

// listPageSize is the Drive listing page size.
const listPageSize = 100

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// Store lists and downloads the watched Drive folder.
type Store struct {
	svc      *drive.Service
	folderID string
	limiter  *RateLimiter
	tmpDir   string
	maxSize  int64
}

// Option configures the store.
type Option func(*Store)

// WithMaxDownloadSize caps the size of downloaded files.
func WithMaxDownloadSize(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithRateLimit overrides the default request pacing.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(s *Store) { s.limiter = NewRateLimiter(cfg) }
}

// NewStore creates a Drive-backed file store for the given folder.
func NewStore(ctx context.Context, folderID string, ts oauth2.TokenSource, opts ...Option) (*Store, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "knowbot-drive-*")
	if err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	s := &Store{
		svc:      svc,
		folderID: folderID,
		limiter:  NewRateLimiter(DefaultRateLimit),
		tmpDir:   tmpDir,
		maxSize:  DefaultMaxDownloadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListFiles returns metadata for every non-folder file in the folder.
func (s *Store) ListFiles(ctx context.Context) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile
	pageToken := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", s.folderID)).
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size, webViewLink)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			s.recordRateLimit(err)
			return nil, fmt.Errorf("listing folder %s: %w", s.folderID, err)
		}

		for _, f := range resp.Files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			files = append(files, domain.RemoteFile{
				ID:             f.Id,
				Name:           f.Name,
				MIMEType:       f.MimeType,
				ModifiedTime:   f.ModifiedTime,
				Size:           f.Size,
				WebViewLink:    f.WebViewLink,
				ExportMIMEType: exportMIMEFor(f.MimeType),
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	logger.Debug("Drive listing: %d files in folder %s", len(files), s.folderID)
	return files, nil
}

// Download fetches the file content to a local path. Google-native types
// are exported to their plain-text format. Returns an empty path for files
// that exceed the size cap.
func (s *Store) Download(ctx context.Context, file domain.RemoteFile) (string, error) {
	if file.ExportMIMEType == "" && strings.HasPrefix(file.MIMEType, "application/vnd.google-apps.") {
		// Drawings, forms and other natives without a text export
		return "", fmt.Errorf("%s (%s): %w", file.Name, file.MIMEType, domain.ErrUnsupportedType)
	}
	if file.ExportMIMEType == "" && file.Size > s.maxSize {
		logger.Warn("Skipping %s: %d bytes exceeds download cap", file.Name, file.Size)
		return "", nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp *http.Response
	var err error
	if file.ExportMIMEType != "" {
		resp, err = s.svc.Files.Export(file.ID, file.ExportMIMEType).Context(ctx).Download()
	} else {
		resp, err = s.svc.Files.Get(file.ID).Context(ctx).Download()
	}
	if err != nil {
		s.recordRateLimit(err)
		if isNotFound(err) {
			// Deleted between listing and download
			return "", nil
		}
		return "", fmt.Errorf("downloading %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	path := filepath.Join(s.tmpDir, file.CacheKey()+filepath.Ext(file.Name))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating local file: %w", err)
	}

	_, err = io.Copy(out, io.LimitReader(resp.Body, s.maxSize))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", file.Name, err)
	}

	return path, nil
}

// Close removes the temporary download directory.
func (s *Store) Close() error {
	return os.RemoveAll(s.tmpDir)
}

// recordRateLimit feeds 429 responses back into the limiter.
func (s *Store) recordRateLimit(err error) {
	var apiErr *googleapi.Error
	if asGoogleAPIError(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		s.limiter.RecordRateLimitError(0)
	}
}

// exportMIMEFor returns the export target for Google-native types, or the
// empty string for regular files.
func exportMIMEFor(mimeType string) string {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return ExportMimeText
	case MimeTypeGoogleSheet:
		return ExportMimeCSV
	default:
		return ""
	}
}
