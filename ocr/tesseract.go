// Package ocr holds the OCR engines the readers can be wired with.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs OCR locally through libtesseract. A new client is created
// per call because gosseract clients are not safe for concurrent use.
type Tesseract struct {
	Languages []string
}

type ocrResult struct {
	text string
	err  error
}

func (t *Tesseract) ExtractText(ctx context.Context, image []byte) (string, error) {
	done := make(chan ocrResult, 1)
	go func() {
		text, err := t.run(image)
		done <- ocrResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (t *Tesseract) run(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(t.Languages) > 0 {
		if err := client.SetLanguage(t.Languages...); err != nil {
			return "", fmt.Errorf("failed to set ocr languages: %w", err)
		}
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}

	return text, nil
}
