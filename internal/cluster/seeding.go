package cluster

import "math/rand"

// uniformSeeds samples k distinct row indices uniformly without replacement.
func uniformSeeds(rng *rand.Rand, n, k int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices[:k]
}

// dSquaredSeeds picks the first center uniformly and each subsequent one with
// probability proportional to its squared distance to the nearest already
// chosen center. Chosen rows carry zero weight, which keeps the seeds
// distinct; when every remaining weight is zero (all rows coincide with a
// center) it falls back to the first unchosen row.
func dSquaredSeeds(rng *rand.Rand, s *Schema, vectors []Vector, k int) []int {
	n := len(vectors)
	seeds := make([]int, 0, k)
	chosen := make([]bool, n)

	first := rng.Intn(n)
	seeds = append(seeds, first)
	chosen[first] = true

	// minSq[i] is the squared distance of row i to its nearest chosen center.
	minSq := make([]float64, n)
	for i := range vectors {
		d := Distance(s, vectors[i], vectors[first])
		minSq[i] = d * d
	}

	for len(seeds) < k {
		total := 0.0
		for i := range minSq {
			if !chosen[i] {
				total += minSq[i]
			}
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i := range minSq {
				if chosen[i] {
					continue
				}
				acc += minSq[i]
				if acc >= target {
					next = i
					break
				}
			}
		}
		if next < 0 {
			for i := range chosen {
				if !chosen[i] {
					next = i
					break
				}
			}
		}

		seeds = append(seeds, next)
		chosen[next] = true
		for i := range vectors {
			d := Distance(s, vectors[i], vectors[next])
			if sq := d * d; sq < minSq[i] {
				minSq[i] = sq
			}
		}
	}
	return seeds
}
