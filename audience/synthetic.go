package audience

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// DefaultDimension is the embedding dimension used for synthetic inventory
// embeddings when the product declares none.
const DefaultDimension = 512

// SyntheticEmbedding derives a deterministic, normalized embedding from a set
// of product characteristics. Products without a trained inventory embedding
// still need something comparable; the same characteristics always hash to
// the same vector, so pricing and validation stay idempotent.
func SyntheticEmbedding(characteristics map[string]string, dimension int) []float64 {
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	keys := make([]string, 0, len(characteristics))
	for k := range characteristics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, characteristics[k])
	}
	seed := int64(binary.BigEndian.Uint64(h.Sum(nil)[:8]))

	rng := rand.New(rand.NewSource(seed))
	vector := make([]float64, dimension)
	var norm float64
	for i := range vector {
		vector[i] = rng.NormFloat64()
		norm += vector[i] * vector[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}

// NewInventoryEmbedding wraps a synthetic vector in an inventory embedding
// with contextual signal type and measurement-only consent.
func NewInventoryEmbedding(characteristics map[string]string, dimension int) *Embedding {
	vector := SyntheticEmbedding(characteristics, dimension)
	return &Embedding{
		EmbeddingType: EmbeddingInventory,
		SignalType:    SignalContextual,
		Vector:        vector,
		Dimension:     len(vector),
		Model: ModelDescriptor{
			ID:        "inventory-embedding-v1",
			Version:   "1.0.0",
			Dimension: len(vector),
			Metric:    MetricCosine,
		},
		Consent: &Consent{
			Framework:       "IAB-TCFv2",
			PermissibleUses: []string{"measurement"},
			TTLSeconds:      3600,
		},
		Timestamp:  time.Now().UTC(),
		TTLSeconds: 3600,
	}
}
