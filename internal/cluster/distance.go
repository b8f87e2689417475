package cluster

import (
	"math"

	"github.com/omarkamali/cohort/internal/survey"
)

// Distance returns the heterogeneous dissimilarity between two finalized
// vectors: sqrt of the sum of squared per-feature dissimilarities. Every
// per-feature term lies in [0, 1], so the total lies in [0, sqrt(F)].
// Symmetric, zero on identical vectors; the triangle inequality is not
// guaranteed and nothing here relies on it.
func Distance(s *Schema, a, b Vector) float64 {
	sum := 0.0
	for c := range s.Columns {
		d := featureDistance(&s.Columns[c], &a[c], &b[c])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// featureDistance is the per-kind dissimilarity in [0, 1].
func featureDistance(col *Column, a, b *Cell) float64 {
	switch col.Kind {
	case survey.KindNumeric:
		w := col.Width()
		if w == 0 {
			return 0
		}
		return math.Abs(a.Num-b.Num) / w

	case survey.KindOrdinal:
		if len(col.Levels) <= 1 {
			return 0
		}
		return math.Abs(float64(a.Rank-b.Rank)) / float64(len(col.Levels)-1)

	case survey.KindCategoricalSingle:
		if a.Label == b.Label {
			return 0
		}
		return 1

	case survey.KindCategoricalMulti:
		return jaccardDistance(a.Set, b.Set)

	default:
		// Free text never contributes to distance; it rides along for
		// reporting only.
		return 0
	}
}

// jaccardDistance is 1 - |A∩B| / |A∪B|, with two empty sets at distance 0.
func jaccardDistance(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for l := range a {
		if b[l] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return 1 - float64(inter)/float64(union)
}
