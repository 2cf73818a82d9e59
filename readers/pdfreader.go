package readers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	DefaultMinTextChars = 100
	DefaultOCRDPI       = 300
)

type pdfDocument interface {
	NumPage() int
	PageText(n int) (string, error)
}

type PdfFileReader struct {
	log          *slog.Logger
	minTextChars int
	dpi          int
	timeout      time.Duration
	ocr          OCREngine
	raster       Rasterizer
	open         func(data []byte) (pdfDocument, error)
}

type PdfOption func(*PdfFileReader)

// WithMinTextChars sets how many characters the text layer of a page must
// have before OCR is skipped for that page.
func WithMinTextChars(n int) PdfOption {
	return func(r *PdfFileReader) {
		if n >= 0 {
			r.minTextChars = n
		}
	}
}

func WithDPI(dpi int) PdfOption {
	return func(r *PdfFileReader) {
		if dpi > 0 {
			r.dpi = dpi
		}
	}
}

// WithPageTimeout bounds rendering and OCR of a single page.
func WithPageTimeout(d time.Duration) PdfOption {
	return func(r *PdfFileReader) {
		r.timeout = d
	}
}

func WithLogger(log *slog.Logger) PdfOption {
	return func(r *PdfFileReader) {
		if log != nil {
			r.log = log
		}
	}
}

func NewPdfFileReader(ocr OCREngine, raster Rasterizer, opts ...PdfOption) *PdfFileReader {
	r := &PdfFileReader{
		log:          slog.Default(),
		minTextChars: DefaultMinTextChars,
		dpi:          DefaultOCRDPI,
		ocr:          ocr,
		raster:       raster,
		open:         openPDF,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *PdfFileReader) CanRead(filename string) bool {
	return hasExt(filename, ".pdf")
}

// ReadPages reads the text layer of every page. Pages whose text layer is
// too thin are rendered and OCR'd instead. A page that fails both ways is
// returned empty with a warning.
func (r *PdfFileReader) ReadPages(ctx context.Context, filename string, data []byte) (Extraction, error) {
	doc, err := r.open(data)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open pdf %s: %w", filename, err)
	}

	var res Extraction
	for n := 1; n <= doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}

		text, err := doc.PageText(n)
		if err != nil {
			r.log.Warn("failed to read pdf text layer", "file", filename, "page", n, "error", err)
			text = ""
		}

		if utf8.RuneCountInString(strings.TrimSpace(text)) < r.minTextChars {
			text, err = r.ocrPage(ctx, data, n)
			if err == nil && strings.TrimSpace(text) == "" {
				err = errNoOCRText
			}
			if err != nil {
				r.log.Warn("ocr fallback failed", "file", filename, "page", n, "error", err)
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: no text extracted: %s", n, err))
				text = ""
			}
		}

		res.Pages = append(res.Pages, Page{Number: n, Text: text})
	}

	return res, nil
}

func (r *PdfFileReader) ocrPage(ctx context.Context, data []byte, page int) (string, error) {
	if r.ocr == nil {
		return "", errNoOCR
	}
	if r.raster == nil {
		return "", fmt.Errorf("no rasterizer configured")
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	img, err := r.raster.RenderPage(ctx, data, page, r.dpi)
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	return r.ocr.ExtractText(ctx, img)
}

type ledongthucDoc struct {
	r *pdf.Reader
}

func openPDF(data []byte) (doc pdfDocument, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	return ledongthucDoc{r: r}, nil
}

func (d ledongthucDoc) NumPage() int {
	return d.r.NumPage()
}

// PageText returns the text of page n laid out from glyph positions, so
// paragraph spacing survives as blank lines. The parser panics on some
// malformed content streams; that is reported as an error for the page.
func (d ledongthucDoc) PageText(n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed page content: %v", p)
		}
	}()

	page := d.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	return layoutText(page.Content().Text), nil
}
