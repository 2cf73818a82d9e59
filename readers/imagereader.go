package readers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	errNoOCR     = errors.New("no OCR engine configured")
	errNoOCRText = errors.New("ocr returned no text")
)

type ImageFileReader struct {
	OCR     OCREngine
	Timeout time.Duration
}

func (r *ImageFileReader) CanRead(filename string) bool {
	return hasExt(filename, ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif")
}

// ReadPages OCRs the image as page 1. An OCR failure leaves the page empty
// and is reported as a warning.
func (r *ImageFileReader) ReadPages(ctx context.Context, _ string, data []byte) (Extraction, error) {
	text, err := runOCR(ctx, r.OCR, data, r.Timeout)
	if err != nil {
		return Extraction{
			Pages:    []Page{{Number: 1}},
			Warnings: []string{fmt.Sprintf("page 1: ocr failed: %s", err)},
		}, nil
	}

	return Extraction{Pages: []Page{{Number: 1, Text: text}}}, nil
}

func runOCR(ctx context.Context, engine OCREngine, image []byte, timeout time.Duration) (string, error) {
	if engine == nil {
		return "", errNoOCR
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	return engine.ExtractText(ctx, image)
}
