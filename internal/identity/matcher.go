// Package identity implements biometric re-verification for voters:
// template storage, similarity matching, and single-use vote assertions.
package identity

import (
	"context"
	"errors"
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrMalformedTemplate = errors.New("malformed biometric template")
	ErrDimensionMismatch = errors.New("template dimensions do not match")
)

// Matcher scores a live sample against an enrolled template. Scores are
// in [0, 1], higher is more similar.
type Matcher interface {
	Score(ctx context.Context, enrolled, sample []byte) (float64, error)
}

// CosineMatcher compares CBOR-encoded embedding vectors by cosine
// similarity.
type CosineMatcher struct{}

func NewCosineMatcher() *CosineMatcher {
	return &CosineMatcher{}
}

func (m *CosineMatcher) Score(_ context.Context, enrolled, sample []byte) (float64, error) {
	a, err := decodeEmbedding(enrolled)
	if err != nil {
		return 0, err
	}
	b, err := decodeEmbedding(sample)
	if err != nil {
		return 0, err
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrMalformedTemplate
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point drift so callers can rely on [0, 1].
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}

func decodeEmbedding(raw []byte) ([]float64, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedTemplate
	}
	var vec []float64
	if err := cbor.Unmarshal(raw, &vec); err != nil {
		return nil, ErrMalformedTemplate
	}
	if len(vec) == 0 {
		return nil, ErrMalformedTemplate
	}
	return vec, nil
}

// EncodeEmbedding serializes an embedding vector into the wire format
// the matcher expects. Used by registration and by tests.
func EncodeEmbedding(vec []float64) ([]byte, error) {
	return cbor.Marshal(vec)
}
