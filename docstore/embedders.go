package docstore

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// EmbeddingFunc adapts a chroma-go embedding function to Embedder, so the
// in-memory store can use the same providers as the chroma store.
type EmbeddingFunc struct {
	EF embeddings.EmbeddingFunction
}

func (e EmbeddingFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embs, err := e.EF.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}

	res := make([][]float32, len(embs))
	for i, emb := range embs {
		res[i] = emb.ContentAsFloat32()
	}

	return res, nil
}

const DefaultHashDimension = 512

var tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

// HashEmbedder is a deterministic bag-of-words embedder that hashes tokens
// into a fixed number of buckets. It needs no network and no corpus
// preparation.
type HashEmbedder struct {
	Dimension int
}

func (e HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dim := e.Dimension
	if dim <= 0 {
		dim = DefaultHashDimension
	}

	res := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dim)
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[h.Sum32()%uint32(dim)]++
		}
		res[i] = vec
	}

	return res, nil
}
