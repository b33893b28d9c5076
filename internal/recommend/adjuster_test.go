package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustNilWeightsIsNoOp(t *testing.T) {
	pairs := []ScoredPair{{UserID: "u1", CourseID: "c1", Score: 0.5}}
	out := adjust(pairs, nil, nil, nil)
	assert.Equal(t, pairs, out)
}

func TestAdjustAppliesLevelDistancePenalty(t *testing.T) {
	users := []User{{ID: "u1", Level: 1}}
	courses := []Course{
		{ID: "same", Level: 1},
		{ID: "near", Level: 2},
		{ID: "far", Level: 4},
	}
	weights := []float64{0.0, 0.15, 0.50, 0.85}
	pairs := []ScoredPair{
		{UserID: "u1", CourseID: "same", Score: 1.0},
		{UserID: "u1", CourseID: "near", Score: 1.0},
		{UserID: "u1", CourseID: "far", Score: 1.0},
	}

	out := adjust(pairs, users, courses, weights)

	byCourse := map[string]float64{}
	for _, p := range out {
		byCourse[p.CourseID] = p.Score
	}
	assert.InDelta(t, 1.0, byCourse["same"], 1e-9)
	assert.InDelta(t, 0.85, byCourse["near"], 1e-9)
	// |1-4| = 3, the last weight entry (index 3 = 0.85)
	assert.InDelta(t, 0.15, byCourse["far"], 1e-9)
}

func TestAdjustMonotonicWithLevelDistance(t *testing.T) {
	users := []User{{ID: "u1", Level: 0}}
	weights := []float64{0.0, 0.2, 0.4, 0.6, 0.8}

	var prev float64 = -1
	for diff := 0; diff <= 5; diff++ {
		courses := []Course{{ID: "c", Level: diff}}
		pairs := []ScoredPair{{UserID: "u1", CourseID: "c", Score: 1.0}}
		out := adjust(pairs, users, courses, weights)
		got := out[0].Score
		if prev >= 0 {
			assert.LessOrEqualf(t, got, prev, "score at level distance %d should not exceed distance %d", diff, diff-1)
		}
		prev = got
	}
}
