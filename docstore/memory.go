package docstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Embedder converts texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type memRecord struct {
	snippet Snippet
	vector  []float32
}

// MemoryStore keeps snippets in process and ranks them with brute-force
// cosine similarity.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	keys     map[string]struct{}
	docs     map[string][]memRecord
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		keys:     make(map[string]struct{}),
		docs:     make(map[string][]memRecord),
	}
}

func (s *MemoryStore) Ingest(ctx context.Context, docID string, snippets []Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	missing := make([]Snippet, 0, len(snippets))
	for _, sn := range uniqueByKey(snippets) {
		if _, ok := s.keys[sn.Key()]; !ok {
			missing = append(missing, sn)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, sn := range missing {
		texts[i] = sn.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed snippets of %s: %w", docID, err)
	}
	if len(vectors) != len(missing) {
		return errors.New("embedder returned wrong number of vectors")
	}

	for i, sn := range missing {
		s.keys[sn.Key()] = struct{}{}
		s.docs[sn.DocID] = append(s.docs[sn.DocID], memRecord{
			snippet: sn,
			vector:  normalize(vectors[i]),
		})
	}

	return nil
}

func (s *MemoryStore) Search(ctx context.Context, docID string, query string, k int) ([]Snippet, error) {
	s.mu.RLock()
	records := s.docs[docID]
	s.mu.RUnlock()

	if len(records) == 0 || k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, errors.New("embedder returned wrong number of vectors")
	}
	q := normalize(vectors[0])

	type scored struct {
		rec   memRecord
		score float32
	}
	ranked := make([]scored, len(records))
	for i, r := range records {
		ranked[i] = scored{rec: r, score: dot(r.vector, q)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	res := make([]Snippet, 0, min(k, len(ranked)))
	for _, r := range ranked[:min(k, len(ranked))] {
		res = append(res, r.rec.snippet)
	}

	return res, nil
}

func (s *MemoryStore) DocIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make(map[string]struct{})
	s.docs = make(map[string][]memRecord)
	return nil
}

// Len returns the number of stored snippets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}

	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}

	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}

	return sum
}
