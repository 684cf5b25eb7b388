package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const DefaultDim = 384

// HashingEmbedder is a local, dependency-free embedder: word unigrams and
// character trigrams are hashed into a fixed number of signed buckets and the
// vector is L2-normalized. Texts sharing vocabulary land close together, which
// is enough to tell "Killington Resort" from "Killington Ski Shop" when the
// query mentions skiing.
type HashingEmbedder struct {
	dim int
}

func NewHashing(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, w := range words(text) {
		h.add(v, "w:"+w, 1)
		padded := "#" + w + "#"
		r := []rune(padded)
		for i := 0; i+3 <= len(r); i++ {
			h.add(v, "c:"+string(r[i:i+3]), 0.5)
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func (h *HashingEmbedder) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	v[idx] += weight
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
