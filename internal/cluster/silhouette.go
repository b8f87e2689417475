package cluster

// Silhouette scores a clustering in [-1, 1]: the mean over all rows of
// (b - a) / max(a, b), where a is the mean dissimilarity to the row's own
// cluster and b the smallest mean dissimilarity to any other cluster.
// Singleton rows score 0; a clustering with at most one non-empty cluster
// scores 0 outright. The result is always finite.
func Silhouette(s *Schema, vectors []Vector, labels []int, k int) float64 {
	dist := func(i, j int) float64 { return Distance(s, vectors[i], vectors[j]) }
	return silhouetteWith(dist, labels, k, len(vectors))
}

func silhouetteWith(dist func(i, j int) float64, labels []int, k, n int) float64 {
	sizes := make([]int, k)
	for _, j := range labels {
		sizes[j]++
	}
	nonEmpty := 0
	for _, c := range sizes {
		if c > 0 {
			nonEmpty++
		}
	}
	if n == 0 || nonEmpty <= 1 {
		return 0
	}

	total := 0.0
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] <= 1 {
			continue // s(i) = 0 for singletons
		}

		for j := range sums {
			sums[j] = 0
		}
		for o := 0; o < n; o++ {
			if o != i {
				sums[labels[o]] += dist(i, o)
			}
		}

		a := sums[own] / float64(sizes[own]-1)
		b := 0.0
		haveB := false
		for j := 0; j < k; j++ {
			if j == own || sizes[j] == 0 {
				continue
			}
			mean := sums[j] / float64(sizes[j])
			if !haveB || mean < b {
				b = mean
				haveB = true
			}
		}

		if m := max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}
