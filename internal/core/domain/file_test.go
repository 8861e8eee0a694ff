package domain

import "testing"

func TestRemoteFile_CacheKey(t *testing.T) {
	t.Run("stable for same version", func(t *testing.T) {
		a := RemoteFile{ID: "f1", ModifiedTime: "2025-01-10T10:00:00Z"}
		b := RemoteFile{ID: "f1", ModifiedTime: "2025-01-10T10:00:00Z", Size: 999}
		if a.CacheKey() != b.CacheKey() {
			t.Error("cache key should depend only on id and modification time")
		}
	})

	t.Run("changes with modification time", func(t *testing.T) {
		a := RemoteFile{ID: "f1", ModifiedTime: "2025-01-10T10:00:00Z"}
		b := RemoteFile{ID: "f1", ModifiedTime: "2025-01-11T09:30:00Z"}
		if a.CacheKey() == b.CacheKey() {
			t.Error("new file version must produce a new cache key")
		}
	})

	t.Run("changes with id", func(t *testing.T) {
		a := RemoteFile{ID: "f1", ModifiedTime: "2025-01-10T10:00:00Z"}
		b := RemoteFile{ID: "f2", ModifiedTime: "2025-01-10T10:00:00Z"}
		if a.CacheKey() == b.CacheKey() {
			t.Error("distinct files must produce distinct cache keys")
		}
	})
}

func TestSignatureSetHash(t *testing.T) {
	files := []RemoteFile{
		{ID: "a", Name: "a.pdf", ModifiedTime: "t1", Size: 10, MIMEType: "application/pdf"},
		{ID: "b", Name: "b.txt", ModifiedTime: "t2", Size: 20, MIMEType: "text/plain"},
	}

	t.Run("order independent", func(t *testing.T) {
		reversed := []RemoteFile{files[1], files[0]}
		if SignatureSetHash(files) != SignatureSetHash(reversed) {
			t.Error("listing order must not change the signature hash")
		}
	})

	t.Run("sensitive to modification time", func(t *testing.T) {
		changed := []RemoteFile{files[0], files[1]}
		changed[1].ModifiedTime = "t3"
		if SignatureSetHash(files) == SignatureSetHash(changed) {
			t.Error("modified file must change the signature hash")
		}
	})

	t.Run("sensitive to added file", func(t *testing.T) {
		extra := append([]RemoteFile{}, files...)
		extra = append(extra, RemoteFile{ID: "c", ModifiedTime: "t1"})
		if SignatureSetHash(files) == SignatureSetHash(extra) {
			t.Error("added file must change the signature hash")
		}
	})
}

func TestOCRNames(t *testing.T) {
	cases := []struct {
		name     string
		isOCR    bool
		original string
	}{
		{"pricelist_ocr.pdf", true, "pricelist.pdf"},
		{"pricelist.pdf", false, "pricelist.pdf"},
		{"Regulations_OCR.PDF", true, "Regulations.PDF"},
		{"notes_ocr", true, "notes"},
		{"ocr_report.pdf", false, "ocr_report.pdf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOCRName(tc.name); got != tc.isOCR {
				t.Errorf("IsOCRName(%q) = %v, want %v", tc.name, got, tc.isOCR)
			}
			if got := OCROriginalName(tc.name); got != tc.original {
				t.Errorf("OCROriginalName(%q) = %q, want %q", tc.name, got, tc.original)
			}
		})
	}
}

func TestCategoryForFile(t *testing.T) {
	cases := map[string]Category{
		"Прайс_2025.xlsx":     CategoryPricing,
		"price-list.pdf":      CategoryPricing,
		"Акции_март.docx":     CategoryPromo,
		"Регламент_сети.pdf":  CategoryRegulation,
		"onboarding.txt":      CategoryGeneral,
		"Цены_новостройки.md": CategoryPricing,
	}

	for name, want := range cases {
		if got := CategoryForFile(name); got != want {
			t.Errorf("CategoryForFile(%q) = %s, want %s", name, got, want)
		}
	}
}
