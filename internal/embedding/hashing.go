package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("nova-mentor-feature-hashing-key!")

// Hashing is a model-free encoder: each token is hashed into one of
// Dimension signed buckets and the result is L2-normalized.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing encoder with the given dimension.
func NewHashing(dim int) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hashing dimension must be positive, got %d", dim)
	}
	if _, err := highwayhash.New64(hashKey); err != nil {
		return nil, fmt.Errorf("hashing key: %w", err)
	}
	return &Hashing{dim: dim}, nil
}

func (h *Hashing) Name() string { return string(KindHashing) }

// EmbedDocuments encodes each document independently.
func (h *Hashing) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := h.encode(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EmbedQuery encodes a single query.
func (h *Hashing) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.encode(text)
}

func (h *Hashing) encode(text string) ([]float32, error) {
	v := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		hs, err := highwayhash.New64(hashKey)
		if err != nil {
			return nil, err
		}
		if _, err := hs.Write([]byte(w)); err != nil {
			return nil, err
		}
		sum := hs.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return Normalize(v), nil
}
