package readers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// Page is the raw text of one page. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Extraction is the ordered page text of one file plus the non-fatal
// problems met while producing it.
type Extraction struct {
	Pages    []Page
	Warnings []string
}

// OCREngine turns a raster image into text.
type OCREngine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Rasterizer renders a single PDF page to an image.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdf []byte, page int, dpi int) ([]byte, error)
}

type FileReader interface {
	CanRead(filename string) bool
	ReadPages(ctx context.Context, filename string, data []byte) (Extraction, error)
}

// UniversalReader dispatches a file to the first registered reader that
// accepts its name.
type UniversalReader struct {
	readers []FileReader
}

func NewUniversalReader(readers ...FileReader) *UniversalReader {
	return &UniversalReader{readers: readers}
}

func (r *UniversalReader) CanRead(filename string) bool {
	return r.find(filename) != nil
}

func (r *UniversalReader) Extract(ctx context.Context, data []byte, filename string) (Extraction, error) {
	reader := r.find(filename)
	if reader == nil {
		return Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}

	return reader.ReadPages(ctx, filename, data)
}

func (r *UniversalReader) find(filename string) FileReader {
	for _, reader := range r.readers {
		if reader.CanRead(filename) {
			return reader
		}
	}

	return nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}

	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}
