// Package docfile inspects local files before they are uploaded for parsing.
// It enforces the upload constraints (type and size) client-side and builds a
// best-effort preview; the authoritative parse always happens on the backend.
package docfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxSize bounds uploads at 10MB, matching what the backend accepts.
const MaxSize = 10 << 20

const excerptLimit = 240

var contentTypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".csv": "text/csv",
	".md":  "text/markdown",
}

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// Info describes a local file cleared for upload.
type Info struct {
	Path        string
	Name        string
	Size        int64
	ContentType string

	// PageCount and Excerpt are preview-only and may be zero/empty when the
	// file could not be read locally; the backend parse is authoritative.
	PageCount int
	Excerpt   string
}

// Inspect validates path against the upload constraints and derives a local
// preview. It fails on unsupported types and oversized files so the UI can
// reject them before any network traffic.
func Inspect(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	if stat.IsDir() {
		return Info{}, fmt.Errorf("%s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return Info{}, fmt.Errorf("unsupported file type %q (want pdf, txt, csv, or md)", ext)
	}
	if stat.Size() > MaxSize {
		return Info{}, fmt.Errorf("%s is %d bytes, above the %d byte upload limit", stat.Name(), stat.Size(), int64(MaxSize))
	}

	info := Info{
		Path:        path,
		Name:        stat.Name(),
		Size:        stat.Size(),
		ContentType: contentType,
	}
	if ext == ".pdf" {
		info.PageCount, info.Excerpt = pdfPreview(path)
	} else {
		info.Excerpt = textPreview(path)
	}
	return info, nil
}

func pdfPreview(path string) (int, string) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, ""
	}
	defer file.Close()

	pages := reader.NumPage()
	content, err := reader.GetPlainText()
	if err != nil {
		return pages, ""
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, io.LimitReader(content, 4*excerptLimit)); err != nil {
		return pages, ""
	}
	return pages, clipExcerpt(builder.String())
}

func textPreview(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	buf := make([]byte, 4*excerptLimit)
	n, _ := io.ReadFull(file, buf)
	return clipExcerpt(string(buf[:n]))
}

func clipExcerpt(s string) string {
	s = extraneousWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	if len(s) <= excerptLimit {
		return s
	}
	return strings.TrimSpace(s[:excerptLimit]) + "…"
}
