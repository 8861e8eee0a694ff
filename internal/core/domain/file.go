package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// RemoteFile describes one file in the watched remote folder as returned by
// the file-store listing. It carries just enough metadata to detect change
// and to decide how to process the file.
type RemoteFile struct {
	// ID is the file-store identifier.
	ID string

	// Name is the file name including extension.
	Name string

	// MIMEType is the declared content type.
	MIMEType string

	// ModifiedTime is the RFC 3339 modification timestamp as reported by
	// the file store. Treated as an opaque version marker.
	ModifiedTime string

	// Size is the file size in bytes.
	Size int64

	// WebViewLink is the browser URL used for citations.
	WebViewLink string

	// ExportMIMEType is set for Google-native files the store exports to
	// a plain-text-extractable format on download. Empty for regular
	// files.
	ExportMIMEType string
}

// EffectiveMIMEType returns the MIME type the downloaded content will
// actually have: the export target for Google-native files, the declared
// type otherwise.
func (f RemoteFile) EffectiveMIMEType() string {
	if f.ExportMIMEType != "" {
		return f.ExportMIMEType
	}
	return f.MIMEType
}

// Signature is the change-detection tuple for a listed file. Two listings
// with equal signature sets mean the folder content has not changed.
type Signature struct {
	ID           string
	ModifiedTime string
	Size         int64
	MIMEType     string
}

// Signature returns the change-detection tuple for the file.
func (f RemoteFile) Signature() Signature {
	return Signature{
		ID:           f.ID,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
		MIMEType:     f.MIMEType,
	}
}

// CacheKey derives the fragment-cache key for this file version. The key
// covers the file ID and modification time, so a version change produces a
// new key instead of mutating the old entry.
func (f RemoteFile) CacheKey() string {
	sum := sha256.Sum256([]byte(f.ID + "|" + f.ModifiedTime))
	return hex.EncodeToString(sum[:])
}

// SignatureSetHash folds a listing into a single order-independent hash used
// to decide whether a refresh has any work to do.
func SignatureSetHash(files []RemoteFile) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		sig := f.Signature()
		parts = append(parts, fmt.Sprintf("%s|%s|%d|%s", sig.ID, sig.ModifiedTime, sig.Size, sig.MIMEType))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

// ocrSuffix marks OCR-derived siblings, e.g. "pricelist_ocr.pdf" is the OCR
// rendition of "pricelist.pdf".
const ocrSuffix = "_ocr"

// IsOCRName reports whether the file name marks an OCR-derived rendition.
func IsOCRName(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(strings.ToLower(base), ocrSuffix)
}

// OCROriginalName strips the OCR marker, returning the name of the original
// document the OCR rendition was produced from. Returns the input unchanged
// for non-OCR names.
func OCROriginalName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if !strings.HasSuffix(strings.ToLower(base), ocrSuffix) {
		return name
	}
	return base[:len(base)-len(ocrSuffix)] + ext
}

// CategoryForFile buckets a file into a coarse document category based on
// its name. Used for metadata filtering at query time.
func CategoryForFile(name string) Category {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "price") || strings.Contains(lower, "прайс") || strings.Contains(lower, "цен"):
		return CategoryPricing
	case strings.Contains(lower, "promo") || strings.Contains(lower, "акци") || strings.Contains(lower, "скидк"):
		return CategoryPromo
	case strings.Contains(lower, "regulation") || strings.Contains(lower, "регламент") || strings.Contains(lower, "правил"):
		return CategoryRegulation
	default:
		return CategoryGeneral
	}
}
