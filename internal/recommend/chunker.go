package recommend

import "sync"

// runChunked splits users into contiguous blocks of chunkSize and runs
// Score -> Filter -> Adjust -> Rank independently per block against the
// full course catalog, concatenating the results. Each user appears in
// exactly one chunk, and every chunk sees the entire catalog, so the
// final ranked result for any user is identical to running a single
// batch over the whole cohort: chunking is semantically transparent,
// only a memory/concurrency strategy.
//
// Chunks run concurrently on a bounded worker pool of maxWorkers
// goroutines; a chunk's intermediate scored/filtered/adjusted slices are
// eligible for GC as soon as that chunk's goroutine returns. Since up to
// maxWorkers chunks are in flight at once, peak working set is bounded by
// roughly maxWorkers x chunkSize x len(courses) similarity entries rather
// than len(users) x len(courses).
func runChunked(users []User, courses []Course, cfg Config) ([]RankedPair, error) {
	if len(users) <= cfg.ChunkSize {
		pairs, err := runSingleBatch(users, courses, cfg)
		if err != nil {
			return nil, err
		}
		return pairs, nil
	}

	numChunks := (len(users) + cfg.ChunkSize - 1) / cfg.ChunkSize
	results := make([][]RankedPair, numChunks)
	errs := make([]error, numChunks)

	const maxWorkers = 8
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numChunks; i++ {
		start := i * cfg.ChunkSize
		end := start + cfg.ChunkSize
		if end > len(users) {
			end = len(users)
		}
		chunk := users[start:end]

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, chunkUsers []User) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx], errs[idx] = runSingleBatch(chunkUsers, courses, cfg)
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]RankedPair, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// runSingleBatch executes stages 1-4 (Score, Filter, Adjust, Rank) for a
// single contiguous block of users against the full catalog.
func runSingleBatch(users []User, courses []Course, cfg Config) ([]RankedPair, error) {
	pairs, err := score(users, courses)
	if err != nil {
		return nil, err
	}

	pairs = filterExclusions(pairs, users)
	pairs = adjust(pairs, users, courses, cfg.PenaltyWeights)

	return rank(pairs, cfg.K), nil
}
