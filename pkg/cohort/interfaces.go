// Package cohort exposes the engine's consumed and produced contracts for
// programs embedding the clustering engine without pulling in the CLI or
// server layers.
package cohort

import (
	"context"

	"github.com/omarkamali/cohort/internal/cluster"
	"github.com/omarkamali/cohort/internal/survey"
)

// Resolver maps a (surveyID, questionID) pair to the question's column
// index, or -1 when the pair is unknown. The domain store supplies one per
// survey; the engine never builds its own.
type Resolver = survey.Resolver

// Result is one clustering outcome per k: the respondent grouping, its
// silhouette in [-1, 1], and the PRNG seed that produced it.
type Result = cluster.Result

// RespondentSource supplies the respondents of a survey in a stable order.
// Row order determines vector order, so implementations must be
// deterministic for reproducible runs.
type RespondentSource interface {
	Respondents(surveyID string) []survey.Respondent
}

// Engine is the clustering entry point consumed by callers: sweep k with
// multi-restart selection, or pick the best of a finished sweep.
type Engine interface {
	Sweep(ctx context.Context, sv *survey.Survey, respondents []survey.Respondent, resolver Resolver, algorithmTag string, kMax, maxIter int) ([]Result, error)
	Best(results []Result) (Result, bool)
}

// Schema is the immutable per-column metadata of one survey; Vector the
// finalized cell sequence of one respondent.
type (
	Schema = cluster.Schema
	Vector = cluster.Vector
)

// Sweep runs the default engine. See internal/cluster.Sweep for semantics.
func Sweep(ctx context.Context, sv *survey.Survey, respondents []survey.Respondent, resolver Resolver, algorithmTag string, kMax, maxIter int) ([]Result, error) {
	return cluster.Sweep(ctx, sv, respondents, resolver, algorithmTag, kMax, maxIter, nil)
}

// Best picks the maximum-silhouette result, or false for an empty list.
func Best(results []Result) (Result, bool) {
	return cluster.Best(results)
}

// Distance is the heterogeneous dissimilarity between two finalized vectors.
func Distance(s *Schema, a, b Vector) float64 {
	return cluster.Distance(s, a, b)
}

// Silhouette scores a labeling of prebuilt vectors in [-1, 1].
func Silhouette(s *Schema, vectors []Vector, labels []int, k int) float64 {
	return cluster.Silhouette(s, vectors, labels, k)
}
