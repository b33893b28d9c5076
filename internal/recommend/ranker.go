package recommend

import "sort"

// rank groups pairs by user, sorts each group by score descending with a
// reproducible tie-break (ascending course_id), truncates to the first K
// rows, and assigns a dense rank starting at 1.
//
// The tie-break is an explicit choice where spec leaves the reference's
// implicit dataframe-stable-sort order unspecified: sorting additionally
// by course_id makes the order deterministic without depending on input
// iteration order.
func rank(pairs []ScoredPair, k int) []RankedPair {
	byUser := make(map[string][]ScoredPair)
	order := make([]string, 0)
	for _, p := range pairs {
		if _, ok := byUser[p.UserID]; !ok {
			order = append(order, p.UserID)
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	result := make([]RankedPair, 0, len(pairs))
	for _, userID := range order {
		group := byUser[userID]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Score != group[j].Score {
				return group[i].Score > group[j].Score
			}
			return group[i].CourseID < group[j].CourseID
		})

		if len(group) > k {
			group = group[:k]
		}
		for i, p := range group {
			result = append(result, RankedPair{
				UserID:   p.UserID,
				CourseID: p.CourseID,
				Score:    p.Score,
				Rank:     i + 1,
			})
		}
	}
	return result
}
