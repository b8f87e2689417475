package cluster

import "errors"

// Structural failures abort a sweep; they are compared with errors.Is and
// wrapped with util.WrapError at the call sites that surface them.
var (
	// ErrInvalidParameters reports kMax < 2, maxIter <= 0 or a nil survey.
	ErrInvalidParameters = errors.New("invalid clustering parameters")

	// ErrNoRespondents reports an empty respondent list.
	ErrNoRespondents = errors.New("no respondents to cluster")

	// ErrUnknownAlgorithm reports an unrecognized algorithm tag.
	ErrUnknownAlgorithm = errors.New("unknown clustering algorithm")

	// ErrInvalidSchema reports contradictory column metadata, such as a
	// numeric range with min > max or an empty option universe.
	ErrInvalidSchema = errors.New("invalid feature schema")

	// ErrEmptyPopulation reports a vector build over zero respondents.
	ErrEmptyPopulation = errors.New("empty population")

	// ErrCancelled reports a cooperative stop between iterations. No partial
	// results leak past the sweep boundary.
	ErrCancelled = errors.New("clustering cancelled")
)
