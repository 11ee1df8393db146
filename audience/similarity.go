package audience

import (
	"math"

	"github.com/golang/glog"
)

// Similarity compares two embeddings under the metric declared by the product
// embedding's model descriptor. A dimension mismatch yields 0 rather than an
// error so that validation degrades instead of aborting.
func Similarity(buyer, product *Embedding) float64 {
	if buyer == nil || product == nil {
		return 0
	}
	if buyer.Dimension != product.Dimension || len(buyer.Vector) != len(product.Vector) {
		glog.Warningf("Embedding dimension mismatch: %d vs %d", buyer.Dimension, product.Dimension)
		return 0
	}

	switch product.Model.Metric {
	case MetricDot:
		return dotProduct(buyer.Vector, product.Vector)
	case MetricL2:
		return l2Distance(buyer.Vector, product.Vector)
	default:
		return cosineSimilarity(buyer.Vector, product.Vector)
	}
}

func cosineSimilarity(v1, v2 []float64) float64 {
	var dot, norm1, norm2 float64
	for i := range v1 {
		dot += v1[i] * v2[i]
		norm1 += v1[i] * v1[i]
		norm2 += v2[i] * v2[i]
	}
	if norm1 == 0 || norm2 == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(norm1) * math.Sqrt(norm2))
	// Anti-correlated vectors clamp to 0 so derived coverage and reach stay
	// in [0,100] and non-negative.
	if sim < 0 {
		return 0
	}
	return sim
}

func dotProduct(v1, v2 []float64) float64 {
	var dot float64
	for i := range v1 {
		dot += v1[i] * v2[i]
	}
	return dot
}

// l2Distance returns Euclidean distance, not similarity. Lower is more similar.
func l2Distance(v1, v2 []float64) float64 {
	var sum float64
	for i := range v1 {
		d := v1[i] - v2[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
