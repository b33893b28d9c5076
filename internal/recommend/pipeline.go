package recommend

// Run executes the full recommendation pipeline for a cohort of users
// against a course catalog: Score, Filter, Adjust and Rank, chunking
// internally when the cohort exceeds cfg.ChunkSize, then backfilling
// any under-quota user from a popularity-based fallback so that every
// user who can be given K recommendations receives exactly K.
//
// An empty user list or empty catalog is not an error: Run simply
// returns an empty result, since there is nothing to score.
func Run(users []User, courses []Course, cfg Config) (RankedResult, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return RankedResult{}, err
	}

	if len(users) == 0 || len(courses) == 0 {
		return RankedResult{}, nil
	}

	ranked, err := runChunked(users, courses, cfg)
	if err != nil {
		return RankedResult{}, err
	}

	ranked = applyFallback(ranked, users, courses, cfg.K)

	return RankedResult{Rows: ranked}, nil
}
