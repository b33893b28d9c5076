package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterExclusionsRemovesPurchasedAndCreated(t *testing.T) {
	users := []User{
		{ID: "u1", PurchasedCourseIDs: []string{"c1"}, CreatedCourseIDs: []string{"c2"}},
	}
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9},
		{UserID: "u1", CourseID: "c2", Score: 0.8},
		{UserID: "u1", CourseID: "c3", Score: 0.7},
	}

	out := filterExclusions(pairs, users)
	assert.Len(t, out, 1)
	assert.Equal(t, "c3", out[0].CourseID)
}

func TestFilterExclusionsNoExclusionsIsNoOp(t *testing.T) {
	users := []User{{ID: "u1"}}
	pairs := []ScoredPair{{UserID: "u1", CourseID: "c1", Score: 0.5}}

	out := filterExclusions(pairs, users)
	assert.Equal(t, pairs, out)
}

func TestFilterExclusionsOnlyAppliesToOwningUser(t *testing.T) {
	users := []User{
		{ID: "u1", PurchasedCourseIDs: []string{"c1"}},
		{ID: "u2"},
	}
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9},
		{UserID: "u2", CourseID: "c1", Score: 0.9},
	}

	out := filterExclusions(pairs, users)
	assert.Len(t, out, 1)
	assert.Equal(t, "u2", out[0].UserID)
}
