package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// Algorithm selects the clustering core and its seeding strategy.
type Algorithm int

const (
	AlgoLloyd Algorithm = iota + 1
	AlgoSeededLloyd
	AlgoMedoid
)

func (a Algorithm) String() string {
	switch a {
	case AlgoLloyd:
		return "LLOYD"
	case AlgoSeededLloyd:
		return "SEEDED_LLOYD"
	case AlgoMedoid:
		return "MEDOID"
	default:
		return "UNKNOWN"
	}
}

// ParseAlgorithm resolves an algorithm tag. Tags are case-insensitive and
// the numeric aliases of older clients are still accepted.
func ParseAlgorithm(tag string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "LLOYD", "1":
		return AlgoLloyd, nil
	case "SEEDED_LLOYD", "SEEDED-LLOYD", "2":
		return AlgoSeededLloyd, nil
	case "MEDOID", "3":
		return AlgoMedoid, nil
	default:
		return 0, util.WrapError(ErrUnknownAlgorithm, fmt.Sprintf("tag %q", tag))
	}
}

// Result is one clustering outcome: the respondent grouping for one value of
// k, the silhouette it scored and the seed that produced it. Groups is a
// partition of the input respondents keyed by cluster id.
type Result struct {
	SurveyID   string           `json:"survey_id"`
	Algorithm  string           `json:"algorithm"`
	K          int              `json:"k"`
	Silhouette float64          `json:"silhouette"`
	Seed       int64            `json:"seed"`
	Groups     map[int][]string `json:"groups"`
}

// Options tune the sweep. The zero value gets the defaults the original
// platform shipped with.
type Options struct {
	// Restarts per k; best silhouette wins, earlier restart on ties.
	Restarts int
	// SeedStride spaces the per-restart PRNG seeds: seed = restart * stride.
	SeedStride int64
	// Metrics receives sweep timing; defaults to the global collector.
	Metrics util.MetricsCollector
}

const (
	DefaultRestarts   = 10
	DefaultSeedStride = 1000
)

func (o *Options) withDefaults() Options {
	out := Options{Restarts: DefaultRestarts, SeedStride: DefaultSeedStride, Metrics: util.DefaultMetrics}
	if o == nil {
		return out
	}
	if o.Restarts > 0 {
		out.Restarts = o.Restarts
	}
	if o.SeedStride > 0 {
		out.SeedStride = o.SeedStride
	}
	if o.Metrics != nil {
		out.Metrics = o.Metrics
	}
	return out
}

// checkCancelled is the cooperative stop checked at iteration boundaries.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return util.WrapError(ErrCancelled, context.Cause(ctx).Error())
	default:
		return nil
	}
}

// Run executes one clustering run over prebuilt vectors with the given k and
// PRNG. Lloyd-family runs return synthetic centers; MEDOID centers are the
// medoid rows themselves. Exposed for callers that need a single
// (algorithm, k, seed) evaluation rather than a sweep.
func Run(ctx context.Context, algo Algorithm, s *Schema, vectors []Vector, k, maxIter int, rng *rand.Rand) (labels []int, centers []Vector, err error) {
	if k < 1 || k > len(vectors) || maxIter <= 0 {
		return nil, nil, util.WrapError(ErrInvalidParameters,
			fmt.Sprintf("k=%d over %d rows, maxIter=%d", k, len(vectors), maxIter))
	}

	switch algo {
	case AlgoLloyd:
		return runLloyd(ctx, s, vectors, k, maxIter, rng, false)
	case AlgoSeededLloyd:
		return runLloyd(ctx, s, vectors, k, maxIter, rng, true)
	case AlgoMedoid:
		cache := newPairCache(s, vectors)
		labels, medoids, err := runMedoid(ctx, cache, k, maxIter, rng)
		if err != nil {
			return nil, nil, err
		}
		centers = make([]Vector, k)
		for j, m := range medoids {
			centers[j] = vectors[m]
		}
		return labels, centers, nil
	default:
		return nil, nil, util.WrapError(ErrUnknownAlgorithm, fmt.Sprintf("algorithm %d", algo))
	}
}

// Sweep validates its inputs, builds the schema and vectors once, and for
// every k in [2, min(kMax, n)] runs Restarts seeded restarts of the chosen
// algorithm, keeping the best-silhouette run per k. Results come back in
// ascending k order. All failures surface; only empty clusters are repaired
// internally.
func Sweep(ctx context.Context, sv *survey.Survey, respondents []survey.Respondent, resolver survey.Resolver, tag string, kMax, maxIter int, opts *Options) ([]Result, error) {
	if sv == nil || kMax < 2 || maxIter <= 0 {
		return nil, util.WrapError(ErrInvalidParameters,
			fmt.Sprintf("kMax=%d, maxIter=%d, survey=%v", kMax, maxIter, sv != nil))
	}
	if len(respondents) == 0 {
		return nil, util.WrapError(ErrNoRespondents, fmt.Sprintf("survey %s", sv.ID))
	}
	algo, err := ParseAlgorithm(tag)
	if err != nil {
		return nil, err
	}
	o := opts.withDefaults()

	schema, err := BuildSchema(sv)
	if err != nil {
		return nil, err
	}
	vectors, err := BuildVectors(schema, respondents, resolver)
	if err != nil {
		return nil, err
	}

	n := len(vectors)
	if kMax > n {
		kMax = n
	}

	started := time.Now()
	results := make([]Result, 0, kMax-1)

	for k := 2; k <= kMax; k++ {
		var bestLabels []int
		bestSil := 0.0
		var bestSeed int64
		found := false

		for r := 0; r < o.Restarts; r++ {
			seed := int64(r) * o.SeedStride
			rng := rand.New(rand.NewSource(seed))

			labels, _, err := Run(ctx, algo, schema, vectors, k, maxIter, rng)
			if err != nil {
				return nil, err
			}
			sil := Silhouette(schema, vectors, labels, k)
			if !found || sil > bestSil {
				found = true
				bestSil = sil
				bestSeed = seed
				bestLabels = labels
			}
		}

		results = append(results, buildResult(sv.ID, algo, k, bestSil, bestSeed, bestLabels, respondents))
		o.Metrics.IncCounter("cluster_sweep_runs", map[string]string{"algorithm": algo.String()})
	}

	o.Metrics.ObserveHistogram("cluster_sweep_seconds", time.Since(started).Seconds(),
		map[string]string{"algorithm": algo.String()})
	slog.Info("Clustering sweep completed",
		"survey", sv.ID, "algorithm", algo.String(), "k_max", kMax, "n", n,
		"restarts", o.Restarts, "took", time.Since(started).String())

	return results, nil
}

// Best returns the result with the maximum silhouette, or false for an empty
// list. Ties keep the earliest entry, i.e. the smallest k.
func Best(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Silhouette > best.Silhouette {
			best = r
		}
	}
	return best, true
}

func buildResult(surveyID string, algo Algorithm, k int, sil float64, seed int64, labels []int, respondents []survey.Respondent) Result {
	groups := make(map[int][]string)
	for i, j := range labels {
		groups[j] = append(groups[j], respondents[i].UserID)
	}
	return Result{
		SurveyID:   surveyID,
		Algorithm:  algo.String(),
		K:          k,
		Silhouette: sil,
		Seed:       seed,
		Groups:     groups,
	}
}
