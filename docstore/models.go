package docstore

import (
	"context"
	"fmt"
)

// NoPage is the page number given to snippets of non-paginated sources
// (plain text, images, office documents).
const NoPage = 1

// Snippet is one paragraph of one document together with its citation.
type Snippet struct {
	DocID     string
	Content   string
	Page      int
	Paragraph int
}

// Key returns the deterministic storage key of the snippet.
func (s Snippet) Key() string {
	return SnippetKey(s.DocID, s.Page, s.Paragraph)
}

// SnippetKey derives the storage key for a (doc, page, paragraph) triple.
func SnippetKey(docID string, page, paragraph int) string {
	return fmt.Sprintf("%s_p%d_para%d", docID, page, paragraph)
}

// Store persists snippets and searches them one document at a time.
type Store interface {
	// Ingest stores the snippets of a document. Snippets whose key is
	// already present are skipped.
	Ingest(ctx context.Context, docID string, snippets []Snippet) error
	// Search returns up to k snippets of docID ranked by similarity to query.
	Search(ctx context.Context, docID string, query string, k int) ([]Snippet, error)
	// DocIDs lists every document that has at least one stored snippet.
	DocIDs(ctx context.Context) ([]string, error)
	// Reset drops every stored snippet.
	Reset(ctx context.Context) error
}

func uniqueByKey(snippets []Snippet) []Snippet {
	seen := make(map[string]struct{}, len(snippets))
	res := make([]Snippet, 0, len(snippets))
	for _, s := range snippets {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		res = append(res, s)
	}

	return res
}
