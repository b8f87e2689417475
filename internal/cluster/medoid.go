package cluster

import (
	"context"
	"math"
	"math/rand"
)

// pairCache is a lazily filled symmetric pairwise distance cache. MEDOID
// revisits the same pairs many times per run; n stays small enough
// (spec'd for n up to a few thousand) that O(n²) float64 is acceptable.
type pairCache struct {
	s       *Schema
	vectors []Vector
	d       []float64
}

func newPairCache(s *Schema, vectors []Vector) *pairCache {
	n := len(vectors)
	d := make([]float64, n*n)
	for i := range d {
		d[i] = -1
	}
	return &pairCache{s: s, vectors: vectors, d: d}
}

func (p *pairCache) dist(i, j int) float64 {
	if i == j {
		return 0
	}
	n := len(p.vectors)
	if v := p.d[i*n+j]; v >= 0 {
		return v
	}
	v := Distance(p.s, p.vectors[i], p.vectors[j])
	p.d[i*n+j] = v
	p.d[j*n+i] = v
	return v
}

// runMedoid is the representative-based core. Centers are actual rows: each
// iteration assigns rows to their closest medoid and then moves every medoid
// to the member minimizing the summed dissimilarity to its cluster. The run
// stops when no medoid moves or maxIter is reached. Returns labels and the
// medoid row indices.
func runMedoid(ctx context.Context, cache *pairCache, k, maxIter int, rng *rand.Rand) ([]int, []int, error) {
	n := len(cache.vectors)

	medoids := uniformSeeds(rng, n, k)
	labels := make([]int, n)

	for it := 0; it < maxIter; it++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, nil, err
		}

		assignToMedoids(cache, medoids, labels)
		repairEmptyMedoid(cache, medoids, labels)

		moved := false
		for j := 0; j < k; j++ {
			next := bestMedoid(cache, labels, j)
			if next >= 0 && next != medoids[j] {
				medoids[j] = next
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	// A run that hits the iteration cap right after moving medoids would
	// otherwise report labels one step behind the final medoids.
	assignToMedoids(cache, medoids, labels)
	repairEmptyMedoid(cache, medoids, labels)

	return labels, medoids, nil
}

// assignToMedoids assigns each row to its closest medoid, ties toward the
// lowest cluster id.
func assignToMedoids(cache *pairCache, medoids []int, labels []int) {
	for i := range labels {
		best := 0
		bestDist := math.Inf(1)
		for j, m := range medoids {
			if d := cache.dist(i, m); d < bestDist {
				bestDist = d
				best = j
			}
		}
		labels[i] = best
	}
}

// repairEmptyMedoid re-seeds an empty cluster to the row with the maximum
// minimum-distance to the existing medoids and moves that row over.
func repairEmptyMedoid(cache *pairCache, medoids []int, labels []int) {
	k := len(medoids)
	counts := make([]int, k)
	for _, j := range labels {
		counts[j]++
	}
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		far := -1
		farDist := -1.0
		for i := range labels {
			if counts[labels[i]] < 2 {
				continue
			}
			minDist := math.Inf(1)
			for _, m := range medoids {
				if d := cache.dist(i, m); d < minDist {
					minDist = d
				}
			}
			if minDist > farDist {
				farDist = minDist
				far = i
			}
		}
		if far < 0 {
			continue
		}
		medoids[j] = far
		counts[labels[far]]--
		labels[far] = j
		counts[j]++
	}
}

// bestMedoid picks the cluster member minimizing the sum of dissimilarities
// to all other members; ties keep the lowest row index. Returns -1 for an
// empty cluster.
func bestMedoid(cache *pairCache, labels []int, clusterID int) int {
	members := make([]int, 0)
	for i, j := range labels {
		if j == clusterID {
			members = append(members, i)
		}
	}
	if len(members) == 0 {
		return -1
	}
	best := -1
	bestSum := math.Inf(1)
	for _, i := range members {
		sum := 0.0
		for _, other := range members {
			sum += cache.dist(i, other)
		}
		if sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return best
}
