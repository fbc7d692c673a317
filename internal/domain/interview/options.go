package interview

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTolerance sets the spread (max-min) above which cross-sheet scores
// are treated as conflicting rather than averaged.
func WithTolerance(tolerance float64) Option {
	return func(a *Aggregator) {
		if tolerance > 0 {
			a.tolerance = tolerance
		}
	}
}

// WithScoreRange sets the valid score range. Records outside it are
// excluded with a ScoreRangeError diagnostic.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(a *Aggregator) {
		if maxScore > minScore {
			a.minScore = minScore
			a.maxScore = maxScore
		}
	}
}

// WithWorkers bounds how many candidates are resolved concurrently.
// One worker keeps resolution fully sequential.
func WithWorkers(workers int) Option {
	return func(a *Aggregator) {
		if workers > 0 {
			a.workers = workers
		}
	}
}
