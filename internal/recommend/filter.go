package recommend

// filterExclusions drops any (user, course) pair where the course is in
// that user's purchased-or-created set. All other rows, and their
// scores, pass through unchanged. Missing exclusion lists are treated as
// empty, which requires no special handling here since a User with empty
// slices simply contributes no forbidden pairs.
func filterExclusions(pairs []ScoredPair, users []User) []ScoredPair {
	excluded := make(map[string]map[string]struct{}, len(users))
	for _, u := range users {
		if forbidden := u.excludedCourses(); len(forbidden) > 0 {
			excluded[u.ID] = forbidden
		}
	}

	if len(excluded) == 0 {
		return pairs
	}

	filtered := make([]ScoredPair, 0, len(pairs))
	for _, p := range pairs {
		if forbidden, ok := excluded[p.UserID]; ok {
			if _, isExcluded := forbidden[p.CourseID]; isExcluded {
				continue
			}
		}
		filtered = append(filtered, p)
	}
	return filtered
}
