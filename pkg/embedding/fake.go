package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Fake is a deterministic, dependency-free embedding service. It hashes
// word tokens into dimension buckets and L2-normalizes the result, so
// texts sharing vocabulary land near each other under cosine similarity.
// Useful for tests and offline runs.
type Fake struct {
	dim int
}

// NewFake creates a fake embedder with the given vector width.
func NewFake(dim int) *Fake {
	if dim <= 0 {
		dim = 64
	}
	return &Fake{dim: dim}
}

// Dimension reports the vector width.
func (f *Fake) Dimension() int {
	return f.dim
}

// Embed returns a normalized bag-of-words vector for the text. The same
// text always produces the same vector.
func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%uint32(f.dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
