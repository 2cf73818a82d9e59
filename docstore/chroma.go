package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

const (
	MetaDocID     = "doc_id"
	MetaPage      = "page"
	MetaParagraph = "paragraph"
)

const DefaultCollection = "rag_themes"

// collection is the part of chroma.Collection the store relies on.
type collection interface {
	Add(ctx context.Context, opts ...chroma.CollectionUpdateOption) error
	Get(ctx context.Context, opts ...chroma.CollectionGetOption) (chroma.GetResult, error)
	Query(ctx context.Context, opts ...chroma.CollectionQueryOption) (chroma.QueryResult, error)
}

type collectionFactory func(ctx context.Context, reset bool) (collection, error)

type ChromaStoreConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	RequestSize   int
	Reset         bool
}

type ChromaStore struct {
	requestSize int
	open        collectionFactory

	mu  sync.RWMutex
	col collection
}

func NewChromaStore(ctx context.Context, cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	open := func(ctx context.Context, reset bool) (collection, error) {
		if reset {
			// the collection may not exist yet
			_ = client.DeleteCollection(ctx, name)
		}

		col, err := client.GetOrCreateCollection(ctx, name,
			chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
		if err != nil {
			return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
		}

		return col, nil
	}

	col, err := open(ctx, cfg.Reset)
	if err != nil {
		return nil, err
	}

	return &ChromaStore{
		requestSize: cfg.RequestSize,
		col:         col,
		open:        open,
	}, nil
}

func (ds *ChromaStore) Ingest(ctx context.Context, docID string, snippets []Snippet) error {
	snippets = uniqueByKey(snippets)
	if len(snippets) == 0 {
		return nil
	}

	ids := make([]chroma.DocumentID, 0, len(snippets))
	for _, s := range snippets {
		ids = append(ids, chroma.DocumentID(s.Key()))
	}

	existing, err := ds.current().Get(ctx, chroma.WithIDsGet(ids...))
	if err != nil {
		return fmt.Errorf("failed to look up stored snippets of %s: %w", docID, err)
	}

	stored := make(map[string]struct{})
	for _, id := range existing.GetIDs() {
		stored[string(id)] = struct{}{}
	}

	missing := make([]Snippet, 0, len(snippets))
	for _, s := range snippets {
		if _, ok := stored[s.Key()]; !ok {
			missing = append(missing, s)
		}
	}

	for _, bucket := range buckets(missing, ds.requestSize) {
		err = ds.add(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to store snippets of %s: %w", docID, err)
		}
	}

	return nil
}

func (ds *ChromaStore) add(ctx context.Context, snippets []Snippet) error {
	ids := make([]chroma.DocumentID, 0, len(snippets))
	texts := make([]string, 0, len(snippets))
	metas := make([]chroma.DocumentMetadata, 0, len(snippets))
	for _, s := range snippets {
		ids = append(ids, chroma.DocumentID(s.Key()))
		texts = append(texts, s.Content)
		metas = append(metas, chroma.NewDocumentMetadata(
			chroma.NewStringAttribute(MetaDocID, s.DocID),
			chroma.NewIntAttribute(MetaPage, int64(s.Page)),
			chroma.NewIntAttribute(MetaParagraph, int64(s.Paragraph)),
		))
	}

	return ds.current().Add(ctx,
		chroma.WithIDs(ids...),
		chroma.WithTexts(texts...),
		chroma.WithMetadatas(metas...),
	)
}

// buckets splits snippets into groups whose total content length stays
// within size. A snippet larger than size gets a bucket of its own.
func buckets(snippets []Snippet, size int) [][]Snippet {
	if len(snippets) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]Snippet{snippets}
	}

	var res [][]Snippet
	var cur []Snippet
	total := 0
	for _, s := range snippets {
		l := len(s.Content)
		if len(cur) > 0 && total+l > size {
			res = append(res, cur)
			cur = nil
			total = 0
		}

		cur = append(cur, s)
		total += l
	}

	return append(res, cur)
}

func (ds *ChromaStore) Search(ctx context.Context, docID string, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		return nil, nil
	}

	r, err := ds.current().Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
		chroma.WithWhereQuery(chroma.EqString(MetaDocID, docID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search document %s: %w", docID, err)
	}

	docGroups := r.GetDocumentsGroups()
	metaGroups := r.GetMetadatasGroups()
	if len(docGroups) == 0 || len(metaGroups) == 0 {
		return nil, nil
	}

	docs := docGroups[0]
	metadatas := metaGroups[0]
	res := make([]Snippet, 0, len(docs))
	for i := range min(len(docs), len(metadatas)) {
		meta := metadatas[i]
		id, _ := meta.GetString(MetaDocID)
		if id != docID {
			continue
		}

		res = append(res, Snippet{
			DocID:     id,
			Content:   docs[i].ContentString(),
			Page:      metaInt(meta, MetaPage),
			Paragraph: metaInt(meta, MetaParagraph),
		})
	}

	return res, nil
}

// metaInt reads an integer attribute. Numbers that went through JSON may
// come back as floats.
func metaInt(meta chroma.DocumentMetadata, key string) int {
	if v, ok := meta.GetInt(key); ok {
		return int(v)
	}
	if v, ok := meta.GetFloat(key); ok {
		return int(v)
	}

	return 0
}

func (ds *ChromaStore) DocIDs(ctx context.Context) ([]string, error) {
	res, err := ds.current().Get(ctx, chroma.WithIncludeGet(chroma.IncludeMetadatas))
	if err != nil {
		return nil, fmt.Errorf("failed to list stored documents: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, meta := range res.GetMetadatas() {
		id, ok := meta.GetString(MetaDocID)
		if !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

func (ds *ChromaStore) Reset(ctx context.Context) error {
	col, err := ds.open(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	ds.mu.Lock()
	ds.col = col
	ds.mu.Unlock()

	return nil
}

// current returns the collection in use; Reset may swap it at any time.
func (ds *ChromaStore) current() collection {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	return ds.col
}
