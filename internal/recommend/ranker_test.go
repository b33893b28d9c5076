package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTruncatesToKAndAssignsDenseRanks(t *testing.T) {
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.1},
		{UserID: "u1", CourseID: "c2", Score: 0.9},
		{UserID: "u1", CourseID: "c3", Score: 0.5},
	}

	out := rank(pairs, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "c2", out[0].CourseID)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, "c3", out[1].CourseID)
	assert.Equal(t, 2, out[1].Rank)
}

func TestRankTiesBreakByCourseIDAscending(t *testing.T) {
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "c9", Score: 0.5},
		{UserID: "u1", CourseID: "c1", Score: 0.5},
		{UserID: "u1", CourseID: "c5", Score: 0.5},
	}

	out := rank(pairs, 10)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"c1", "c5", "c9"}, []string{out[0].CourseID, out[1].CourseID, out[2].CourseID})
}

func TestRankIsPerUserIndependent(t *testing.T) {
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9},
		{UserID: "u2", CourseID: "c2", Score: 0.1},
	}

	out := rank(pairs, 10)
	require.Len(t, out, 2)
	for _, p := range out {
		assert.Equal(t, 1, p.Rank)
	}
}

func TestRankPreservesFirstSeenUserOrder(t *testing.T) {
	pairs := []ScoredPair{
		{UserID: "zzz", CourseID: "c1", Score: 0.5},
		{UserID: "aaa", CourseID: "c2", Score: 0.5},
	}

	out := rank(pairs, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "zzz", out[0].UserID)
	assert.Equal(t, "aaa", out[1].UserID)
}
