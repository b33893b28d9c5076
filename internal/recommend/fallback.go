package recommend

import "sort"

// applyFallback tops up every user's ranked list to K entries using a
// single, globally-computed popularity ordering. Users whose primary
// pipeline (score -> filter -> adjust -> rank) already produced K rows
// are left untouched; everyone else is backfilled from the popularity
// list, skipping courses the user purchased, created, or was already
// assigned, continuing the rank sequence from where the primary stage
// left off.
//
// The popularity list itself is built once, from the full user/course
// input (not per-chunk), so two users backfilled from different chunks
// still see an identical ordering: popularCourses orders by descending
// purchase frequency (ties broken by the course's first appearance
// across all purchase lists), then appends every course nobody ever
// purchased in catalog order. Fallback rows deliberately ignore the
// zero-similarity pairs the Scorer never emitted (a course with no tag
// overlap is still a valid backfill candidate);
// only the purchased/created/already-assigned sets are respected.
func applyFallback(ranked []RankedPair, users []User, courses []Course, k int) []RankedPair {
	popular := popularCourses(users, courses)
	if len(popular) == 0 {
		return ranked
	}

	byUser := make(map[string][]RankedPair)
	order := make([]string, 0, len(users))
	seenUser := make(map[string]struct{}, len(users))
	for _, r := range ranked {
		if _, ok := byUser[r.UserID]; !ok {
			order = append(order, r.UserID)
			seenUser[r.UserID] = struct{}{}
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	for _, u := range users {
		if _, ok := seenUser[u.ID]; !ok {
			order = append(order, u.ID)
			seenUser[u.ID] = struct{}{}
		}
	}

	userByID := make(map[string]User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	result := make([]RankedPair, 0, len(ranked))
	for _, userID := range order {
		existing := byUser[userID]
		if len(existing) >= k {
			result = append(result, existing...)
			continue
		}

		assigned := make(map[string]struct{}, len(existing))
		for _, r := range existing {
			assigned[r.CourseID] = struct{}{}
		}
		if u, ok := userByID[userID]; ok {
			for c := range u.excludedCourses() {
				assigned[c] = struct{}{}
			}
		}

		result = append(result, existing...)
		rank := len(existing) + 1
		for _, courseID := range popular {
			if rank > k {
				break
			}
			if _, skip := assigned[courseID]; skip {
				continue
			}
			result = append(result, RankedPair{
				UserID:   userID,
				CourseID: courseID,
				Score:    0,
				Rank:     rank,
			})
			assigned[courseID] = struct{}{}
			rank++
		}
	}

	return result
}

// popularCourses orders all known course ids by descending purchase
// count across every user, breaking ties by the order each course
// first appears in a purchase list; courses nobody ever purchased are
// appended afterward in catalog order.
func popularCourses(users []User, courses []Course) []string {
	count := make(map[string]int)
	firstSeen := make(map[string]int)
	seq := 0
	for _, u := range users {
		for _, courseID := range u.PurchasedCourseIDs {
			count[courseID]++
			if _, ok := firstSeen[courseID]; !ok {
				firstSeen[courseID] = seq
				seq++
			}
		}
	}

	purchased := make([]string, 0, len(count))
	for courseID := range count {
		purchased = append(purchased, courseID)
	}
	sort.Slice(purchased, func(i, j int) bool {
		if count[purchased[i]] != count[purchased[j]] {
			return count[purchased[i]] > count[purchased[j]]
		}
		return firstSeen[purchased[i]] < firstSeen[purchased[j]]
	})

	result := make([]string, 0, len(courses))
	result = append(result, purchased...)
	for _, c := range courses {
		if _, ok := count[c.ID]; !ok {
			result = append(result, c.ID)
		}
	}
	return result
}
