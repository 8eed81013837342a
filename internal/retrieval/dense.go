package retrieval

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
)

// #region dense-index
// DenseIndex scores chunks by inner product of unit vectors (cosine).
type DenseIndex struct {
	chunks  []chunkstore.Chunk
	vectors [][]float32
	dim     int
	encoder embedding.Encoder
}

// NewDense normalizes a copy of every chunk vector. All vectors must share
// one dimension and match the chunk count.
func NewDense(store *chunkstore.Store, vectors [][]float32, encoder embedding.Encoder) (*DenseIndex, error) {
	if encoder == nil {
		return nil, fmt.Errorf("dense index requires an encoder")
	}
	if len(vectors) != store.Len() {
		return nil, fmt.Errorf("vector rows %d != chunks %d", len(vectors), store.Len())
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("dense index requires at least one vector")
	}
	dim := len(vectors[0])
	norm := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		norm[i] = embedding.Normalize(append([]float32(nil), v...))
	}
	return &DenseIndex{chunks: store.All(), vectors: norm, dim: dim, encoder: encoder}, nil
}

func (d *DenseIndex) Mode() Mode { return ModeDense }

// Dimension returns the vector dimension of the index.
func (d *DenseIndex) Dimension() int { return d.dim }

// #endregion dense-index

// #region dense-topk
// TopK encodes the query and returns the k most similar chunks.
// Encoder failures are wrapped in ErrEncoding.
func (d *DenseIndex) TopK(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := d.encoder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if len(q) != d.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrEncoding, len(q), d.dim)
	}
	q = embedding.Normalize(q)

	cands := make([]Candidate, len(d.chunks))
	for i, c := range d.chunks {
		cands[i] = Candidate{ChunkID: c.ID, Text: c.Text, Score: dot(q, d.vectors[i])}
	}
	sortCandidates(cands)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// #endregion dense-topk
