package recommend

// adjust multiplies each score by a level-distance penalty factor:
// (1 - weights[min(|userLevel - courseLevel|, len(weights)-1)]).
// A level difference of 0 applies weights[0] (no penalty by default);
// differences beyond len(weights)-1 clamp to the last entry.
//
// This stage is point-wise and order-independent, so it is skipped
// entirely (scores pass through unmodified) when weights is nil.
func adjust(pairs []ScoredPair, users []User, courses []Course, weights []float64) []ScoredPair {
	if weights == nil {
		return pairs
	}

	userLevel := make(map[string]int, len(users))
	for _, u := range users {
		userLevel[u.ID] = u.Level
	}
	courseLevel := make(map[string]int, len(courses))
	for _, c := range courses {
		courseLevel[c.ID] = c.Level
	}

	maxDiff := len(weights) - 1
	adjusted := make([]ScoredPair, len(pairs))
	for i, p := range pairs {
		diff := abs(userLevel[p.UserID] - courseLevel[p.CourseID])
		if diff > maxDiff {
			diff = maxDiff
		}
		adjusted[i] = ScoredPair{
			UserID:   p.UserID,
			CourseID: p.CourseID,
			Score:    p.Score * (1.0 - weights[diff]),
		}
	}
	return adjusted
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
