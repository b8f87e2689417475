package cluster

import (
	"context"
	"math"
	"math/rand"

	"github.com/omarkamali/cohort/internal/survey"
)

// runLloyd is the mean-based core shared by LLOYD (uniform seeding) and
// SEEDED_LLOYD (D²-weighted seeding). It iterates assignment and column-wise
// mean recomputation until the assignment is stable or maxIter is reached,
// and returns the final labels and synthetic centers.
func runLloyd(ctx context.Context, s *Schema, vectors []Vector, k, maxIter int, rng *rand.Rand, weighted bool) ([]int, []Vector, error) {
	n := len(vectors)

	var seeds []int
	if weighted {
		seeds = dSquaredSeeds(rng, s, vectors, k)
	} else {
		seeds = uniformSeeds(rng, n, k)
	}
	centers := make([]Vector, k)
	for j, row := range seeds {
		centers[j] = vectors[row].Clone()
	}

	labels := make([]int, n)
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}

	for it := 0; it < maxIter; it++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, nil, err
		}

		assignToCenters(s, vectors, centers, labels)
		repairEmptyLloyd(s, vectors, centers, labels, k)

		stable := true
		for i := range labels {
			if labels[i] != prev[i] {
				stable = false
				break
			}
		}
		if stable {
			break
		}
		copy(prev, labels)

		for j := 0; j < k; j++ {
			centers[j] = meanCenter(s, vectors, labels, j)
		}
	}

	return labels, centers, nil
}

// assignToCenters writes each row's nearest center into labels. Ties go to
// the lowest cluster id, which keeps runs reproducible.
func assignToCenters(s *Schema, vectors []Vector, centers []Vector, labels []int) {
	for i := range vectors {
		best := 0
		bestDist := math.Inf(1)
		for j := range centers {
			if d := Distance(s, vectors[i], centers[j]); d < bestDist {
				bestDist = d
				best = j
			}
		}
		labels[i] = best
	}
}

// repairEmptyLloyd re-seeds every empty cluster to the row farthest from its
// current center and moves that row over. Candidates are restricted to rows
// whose cluster keeps at least one other member, so the repair cannot empty
// a different cluster.
func repairEmptyLloyd(s *Schema, vectors []Vector, centers []Vector, labels []int, k int) {
	counts := make([]int, k)
	for _, j := range labels {
		counts[j]++
	}
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		farthest := -1
		farthestDist := -1.0
		for i := range vectors {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := Distance(s, vectors[i], centers[j]); d > farthestDist {
				farthestDist = d
				farthest = i
			}
		}
		if farthest < 0 {
			continue
		}
		centers[j] = vectors[farthest].Clone()
		counts[labels[farthest]]--
		labels[farthest] = j
		counts[j]++
	}
}

// meanCenter recomputes a cluster's synthetic center as column-wise
// aggregates over its members: arithmetic mean for numeric columns, rounded
// mean rank for ordinals, mode (declared-order ties) for single categories,
// per-option majority for multi categories, empty for free text.
func meanCenter(s *Schema, vectors []Vector, labels []int, clusterID int) Vector {
	members := make([]int, 0)
	for i, j := range labels {
		if j == clusterID {
			members = append(members, i)
		}
	}
	center := make(Vector, s.F())

	for c := range s.Columns {
		col := &s.Columns[c]
		cell := Cell{Kind: col.Kind}
		switch col.Kind {
		case survey.KindNumeric:
			sum := 0.0
			for _, i := range members {
				sum += vectors[i][c].Num
			}
			mean := sum / float64(len(members))
			// Centers stay inside the declared range even when raw answers
			// fall outside it.
			cell.Num = math.Min(math.Max(mean, col.Min), col.Max)

		case survey.KindOrdinal:
			sum := 0
			for _, i := range members {
				sum += vectors[i][c].Rank
			}
			rank := int(math.Round(float64(sum) / float64(len(members))))
			if rank < 0 {
				rank = 0
			}
			if rank > len(col.Levels)-1 {
				rank = len(col.Levels) - 1
			}
			cell.Rank = rank

		case survey.KindCategoricalSingle:
			counts := make(map[string]int)
			for _, i := range members {
				counts[vectors[i][c].Label]++
			}
			best := -1
			for _, o := range col.Options {
				if counts[o] > best {
					best = counts[o]
					cell.Label = o
				}
			}

		case survey.KindCategoricalMulti:
			set := make(map[string]bool)
			for _, o := range col.Options {
				present := 0
				for _, i := range members {
					if vectors[i][c].Set[o] {
						present++
					}
				}
				if present*2 > len(members) {
					set[o] = true
				}
			}
			cell.Set = set

		case survey.KindFreeText:
			cell.Text = ""
		}
		center[c] = cell
	}
	return center
}
