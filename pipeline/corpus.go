// Package pipeline ties extraction, chunking, retrieval and the two
// synthesis stages together around a corpus of ingested documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/readers"
	"github.com/gamma-omg/rag-themes/synth"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultTopK = 5

var ErrEmptyQuery = errors.New("query is empty")

type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (readers.Extraction, error)
}

type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, docID, query string, snippets []docstore.Snippet) (*synth.CitedAnswer, error)
}

type ThemeSynthesizer interface {
	Synthesize(ctx context.Context, query string, answers []synth.CitedAnswer) ([]synth.Theme, error)
}

type IngestResult struct {
	DocID    string   `json:"doc_id"`
	Snippets int      `json:"snippets"`
	Skipped  bool     `json:"skipped"`
	Warnings []string `json:"warnings"`
}

type Answer struct {
	QueryID            string              `json:"query_id"`
	PerDocumentAnswers []synth.CitedAnswer `json:"per_document_answers"`
	Themes             []synth.Theme       `json:"themes"`
	Warnings           []string            `json:"warnings"`
}

type Option func(*Corpus)

func WithTopK(k int) Option {
	return func(c *Corpus) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithWorkers sets how many documents are answered concurrently.
func WithWorkers(n int) Option {
	return func(c *Corpus) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Corpus) {
		c.log = log
	}
}

// Corpus is the set of documents ingested into one store during a session.
type Corpus struct {
	log       *slog.Logger
	store     docstore.Store
	extractor Extractor
	answers   AnswerSynthesizer
	themes    ThemeSynthesizer
	topK      int
	workers   int

	ingestMu sync.Mutex
	mu       sync.RWMutex
	seen     map[string]struct{}
}

func New(store docstore.Store, extractor Extractor, answers AnswerSynthesizer, themes ThemeSynthesizer, opts ...Option) *Corpus {
	c := &Corpus{
		log:       slog.Default(),
		store:     store,
		extractor: extractor,
		answers:   answers,
		themes:    themes,
		topK:      DefaultTopK,
		workers:   1,
		seen:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "corpus")

	return c
}

// Open creates a corpus that already knows every document kept in store.
func Open(ctx context.Context, store docstore.Store, extractor Extractor, answers AnswerSynthesizer, themes ThemeSynthesizer, opts ...Option) (*Corpus, error) {
	c := New(store, extractor, answers, themes, opts...)

	ids, err := store.DocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored documents: %w", err)
	}

	for _, id := range ids {
		c.seen[id] = struct{}{}
	}
	c.log.Info("corpus opened", "documents", len(ids))

	return c, nil
}

// IngestDocument extracts, chunks and stores one file. Files already in the
// corpus are skipped. A file without any text is reported through a warning
// and left out of the corpus so it can be retried.
func (c *Corpus) IngestDocument(ctx context.Context, data []byte, filename string) (IngestResult, error) {
	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	docID := DocID(filename)
	res := IngestResult{DocID: docID, Warnings: []string{}}
	log := c.log.With("doc_id", docID, "file", filename)

	if c.has(docID) {
		log.Debug("document already ingested")
		res.Skipped = true
		return res, nil
	}

	ext, err := c.extractor.Extract(ctx, data, filename)
	if err != nil {
		return res, fmt.Errorf("failed to extract %s: %w", filename, err)
	}
	res.Warnings = append(res.Warnings, ext.Warnings...)

	snippets := slices.Collect(Paragraphs(docID, ext.Pages))
	if len(snippets) == 0 {
		log.Warn("no content extracted")
		res.Warnings = append(res.Warnings, fmt.Sprintf("no content could be extracted from %s", filename))
		return res, nil
	}

	if err := c.store.Ingest(ctx, docID, snippets); err != nil {
		return res, fmt.Errorf("failed to store %s: %w", filename, err)
	}

	c.mu.Lock()
	c.seen[docID] = struct{}{}
	c.mu.Unlock()

	res.Snippets = len(snippets)
	log.Info("document ingested", "pages", len(ext.Pages), "snippets", len(snippets), "warnings", len(res.Warnings))

	return res, nil
}

// AnswerQuery answers query from every document in the corpus and groups
// the answers into themes. Failures for one document become warnings.
func (c *Corpus) AnswerQuery(ctx context.Context, query string) (Answer, error) {
	res := Answer{
		QueryID:            uuid.NewString(),
		PerDocumentAnswers: []synth.CitedAnswer{},
		Themes:             []synth.Theme{},
		Warnings:           []string{},
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return res, ErrEmptyQuery
	}

	log := c.log.With("query_id", res.QueryID)
	docs := c.Documents()
	if len(docs) == 0 {
		log.Info("query on empty corpus")
		return res, nil
	}

	found := make([]*synth.CitedAnswer, len(docs))
	warns := make([]string, len(docs))

	g := errgroup.Group{}
	g.SetLimit(c.workers)
	for i, id := range docs {
		g.Go(func() error {
			found[i], warns[i] = c.answerDocument(ctx, log, id, query)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}

	for i := range docs {
		if warns[i] != "" {
			res.Warnings = append(res.Warnings, warns[i])
		}
		if found[i] != nil {
			res.PerDocumentAnswers = append(res.PerDocumentAnswers, *found[i])
		}
	}

	themes, err := c.themes.Synthesize(ctx, query, res.PerDocumentAnswers)
	if err != nil {
		log.Warn("theme synthesis failed", "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("theme synthesis failed: %s", err))
	} else if themes != nil {
		res.Themes = themes
	}

	log.Info("query answered", "documents", len(docs), "answers", len(res.PerDocumentAnswers), "themes", len(res.Themes))

	return res, nil
}

func (c *Corpus) answerDocument(ctx context.Context, log *slog.Logger, docID, query string) (*synth.CitedAnswer, string) {
	snippets, err := c.store.Search(ctx, docID, query, c.topK)
	if err != nil {
		log.Warn("retrieval failed", "doc_id", docID, "error", err)
		return nil, fmt.Sprintf("%s: retrieval failed: %s", docID, err)
	}

	answer, err := c.answers.Synthesize(ctx, docID, query, snippets)
	if err != nil {
		log.Warn("answer synthesis failed", "doc_id", docID, "error", err)
		return nil, fmt.Sprintf("%s: answer synthesis failed: %s", docID, err)
	}

	return answer, ""
}

// Documents returns the ids of every ingested document in sorted order.
func (c *Corpus) Documents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.seen))
	for id := range c.seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// Reset empties the store and forgets every ingested document.
func (c *Corpus) Reset(ctx context.Context) error {
	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	if err := c.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	c.mu.Lock()
	c.seen = make(map[string]struct{})
	c.mu.Unlock()

	c.log.Info("corpus reset")

	return nil
}

func (c *Corpus) has(docID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.seen[docID]
	return ok
}
