package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopularCoursesOrdersByPurchaseFrequencyThenFirstSeen(t *testing.T) {
	users := []User{
		{ID: "u1", PurchasedCourseIDs: []string{"c2", "c1"}},
		{ID: "u2", PurchasedCourseIDs: []string{"c1", "c3"}},
	}
	courses := []Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}, {ID: "c4"}}

	got := popularCourses(users, courses)
	// c1 purchased twice, c2 and c3 once each (c2 first-seen before c3), c4 never purchased.
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, got)
}

func TestApplyFallbackBackfillsUnderQuotaUsers(t *testing.T) {
	users := []User{
		{ID: "u1", PurchasedCourseIDs: []string{"c1"}},
		{ID: "u2", PurchasedCourseIDs: []string{"c1"}},
	}
	courses := []Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

	ranked := []RankedPair{
		{UserID: "u1", CourseID: "c2", Score: 0.9, Rank: 1},
	}

	out := applyFallback(ranked, users, courses, 3)

	var u1Rows []RankedPair
	for _, r := range out {
		if r.UserID == "u1" {
			u1Rows = append(u1Rows, r)
		}
	}
	require.Len(t, u1Rows, 2, "c1 is purchased and must stay excluded, leaving only c2 (scored) and c3 (fallback)")
	assert.Equal(t, "c2", u1Rows[0].CourseID)
	assert.Equal(t, 1, u1Rows[0].Rank)
	assert.Equal(t, "c3", u1Rows[1].CourseID)
	assert.Equal(t, 2, u1Rows[1].Rank)
	assert.Equal(t, 0.0, u1Rows[1].Score)
}

func TestApplyFallbackSkipsUsersAlreadyAtQuota(t *testing.T) {
	users := []User{{ID: "u1"}}
	courses := []Course{{ID: "c1"}, {ID: "c2"}}
	ranked := []RankedPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9, Rank: 1},
		{UserID: "u1", CourseID: "c2", Score: 0.8, Rank: 2},
	}

	out := applyFallback(ranked, users, courses, 2)
	assert.Equal(t, ranked, out)
}

func TestApplyFallbackCoversTotallyColdUser(t *testing.T) {
	users := []User{{ID: "cold"}}
	courses := []Course{{ID: "c1"}, {ID: "c2"}}

	out := applyFallback(nil, users, courses, 2)
	require.Len(t, out, 2)
	for i, r := range out {
		assert.Equal(t, "cold", r.UserID)
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, 0.0, r.Score)
	}
}
