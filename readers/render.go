package readers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Pdftoppm renders PDF pages with poppler's pdftoppm binary.
type Pdftoppm struct {
	// Path of the binary, "pdftoppm" when empty.
	Path string
}

func (p *Pdftoppm) RenderPage(ctx context.Context, data []byte, page int, dpi int) ([]byte, error) {
	if page <= 0 {
		return nil, fmt.Errorf("page must be >= 1")
	}
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}

	bin := p.Path
	if bin == "" {
		bin = "pdftoppm"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", bin, err)
	}

	dir, err := os.MkdirTemp("", "rag_pdf_page_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	args := []string{
		"-r", strconv.Itoa(dpi),
		"-png",
		"-singlefile",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		in, prefix,
	}

	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}

	return img, nil
}
