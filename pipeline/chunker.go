package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"iter"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/readers"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\f\v]*\n\s*`)

// DocID derives a stable document id from the file name, so uploading the
// same file again maps to the same id.
func DocID(filename string) string {
	sum := md5.Sum([]byte(strings.ToLower(filepath.Base(filename))))
	return hex.EncodeToString(sum[:])[:10]
}

// Paragraphs splits page text into paragraph snippets. Paragraphs are
// separated by one or more blank lines and numbered from 1 on every page.
func Paragraphs(docID string, pages []readers.Page) iter.Seq[docstore.Snippet] {
	return func(yield func(docstore.Snippet) bool) {
		for _, p := range pages {
			text := strings.ReplaceAll(p.Text, "\r\n", "\n")
			n := 0
			for _, part := range paragraphBreak.Split(text, -1) {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}

				n++
				s := docstore.Snippet{DocID: docID, Content: part, Page: p.Number, Paragraph: n}
				if !yield(s) {
					return
				}
			}
		}
	}
}
