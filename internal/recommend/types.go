package recommend

// User is a recipient of recommendations.
type User struct {
	ID                 string
	InterestTags       []int
	Level              int
	PurchasedCourseIDs []string
	CreatedCourseIDs   []string
}

// Course is a recommendable item.
type Course struct {
	ID    string
	Tags  []int
	Level int
}

// ScoredPair is a sparse (user, course, score) similarity entry.
// Only strictly positive scores are materialized by the Scorer.
type ScoredPair struct {
	UserID   string
	CourseID string
	Score    float64
}

// RankedPair is a final recommendation row.
type RankedPair struct {
	UserID   string
	CourseID string
	Score    float64
	Rank     int
}

// RankedResult is the pipeline's output: all ranked rows across all users.
type RankedResult struct {
	Rows []RankedPair
}

// excludedCourses returns the set of course IDs a user may never be
// recommended: those already purchased or created by them.
func (u User) excludedCourses() map[string]struct{} {
	excluded := make(map[string]struct{}, len(u.PurchasedCourseIDs)+len(u.CreatedCourseIDs))
	for _, id := range u.PurchasedCourseIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range u.CreatedCourseIDs {
		excluded[id] = struct{}{}
	}
	return excluded
}
