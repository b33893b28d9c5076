package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Scenario A: basic ranking ---------------------------------------

func TestScenarioBasicRanking(t *testing.T) {
	users := []User{{ID: "u1", InterestTags: []int{1, 2, 3}}}
	courses := []Course{
		{ID: "exact", Tags: []int{1, 2, 3}},
		{ID: "partial", Tags: []int{1}},
		{ID: "unrelated", Tags: []int{9}},
	}

	res, err := Run(users, courses, Config{K: 5})
	require.NoError(t, err)

	ids := courseIDs(rowsForUser(res, "u1"))
	require.GreaterOrEqual(t, len(ids), 2)
	assert.Equal(t, "exact", ids[0], "the course sharing every tag should rank first")
}

// --- Scenario B: exclusion dominates -----------------------------------

func TestScenarioExclusionDominatesScore(t *testing.T) {
	users := []User{{ID: "u1", InterestTags: []int{1, 2}, PurchasedCourseIDs: []string{"best"}}}
	courses := []Course{
		{ID: "best", Tags: []int{1, 2}},
		{ID: "second", Tags: []int{1}},
	}

	res, err := Run(users, courses, Config{K: 5})
	require.NoError(t, err)

	for _, r := range rowsForUser(res, "u1") {
		assert.NotEqual(t, "best", r.CourseID, "purchased course must never be recommended regardless of score")
	}
}

// --- Scenario C: total cold user ---------------------------------------

func TestScenarioTotallyColdUserGetsFallbackOnly(t *testing.T) {
	users := []User{{ID: "cold"}}
	courses := []Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

	res, err := Run(users, courses, Config{K: 3})
	require.NoError(t, err)

	rows := rowsForUser(res, "cold")
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.Score)
	}
}

// --- Scenario D: penalty math -------------------------------------------

func TestScenarioPenaltyMathReducesScoreByLevelDistance(t *testing.T) {
	users := []User{{ID: "u1", InterestTags: []int{1}, Level: 0}}
	courses := []Course{
		{ID: "near", Tags: []int{1}, Level: 0},
		{ID: "far", Tags: []int{1}, Level: 3},
	}
	weights := []float64{0.0, 0.2, 0.5, 0.9}

	res, err := Run(users, courses, Config{K: 2, PenaltyWeights: weights})
	require.NoError(t, err)

	rows := rowsForUser(res, "u1")
	require.Len(t, rows, 2)
	scores := map[string]float64{}
	for _, r := range rows {
		scores[r.CourseID] = r.Score
	}
	assert.InDelta(t, 1.0, scores["near"], 1e-9)
	assert.InDelta(t, 0.1, scores["far"], 1e-9)
}

// --- Scenario E: chunk-boundary equivalence at scale --------------------

func TestScenarioChunkingIsSemanticallyTransparent(t *testing.T) {
	users := make([]User, 0, 250)
	for i := 0; i < 250; i++ {
		users = append(users, User{
			ID:           fmt.Sprintf("u%03d", i),
			InterestTags: []int{i % 5, (i + 1) % 5},
			Level:        i % 4,
		})
	}
	courses := make([]Course, 0, 40)
	for i := 0; i < 40; i++ {
		courses = append(courses, Course{
			ID:    fmt.Sprintf("c%02d", i),
			Tags:  []int{i % 5, (i + 2) % 5},
			Level: i % 4,
		})
	}
	cfg := Config{K: 5, PenaltyWeights: DefaultPenaltyWeights}

	unchunked, err := Run(users, courses, mergeConfig(cfg, len(users)+1))
	require.NoError(t, err)

	chunked, err := Run(users, courses, mergeConfig(cfg, 17))
	require.NoError(t, err)

	assert.ElementsMatch(t, unchunked.Rows, chunked.Rows)
}

func mergeConfig(cfg Config, chunkSize int) Config {
	cfg.ChunkSize = chunkSize
	return cfg
}

// --- Scenario F: supply exhaustion ---------------------------------------

func TestScenarioSupplyExhaustionReturnsFewerThanK(t *testing.T) {
	users := []User{{ID: "u1", PurchasedCourseIDs: []string{"c1"}}}
	courses := []Course{{ID: "c1"}, {ID: "c2"}}

	res, err := Run(users, courses, Config{K: 10})
	require.NoError(t, err)

	rows := rowsForUser(res, "u1")
	assert.Len(t, rows, 1, "only c2 remains once the sole purchase is excluded from a two-course catalog")
}

// --- Universal property tests -------------------------------------------

func buildPropertyFixture() ([]User, []Course) {
	users := []User{
		{ID: "u1", InterestTags: []int{1, 2}, Level: 1, PurchasedCourseIDs: []string{"c1"}},
		{ID: "u2", InterestTags: []int{3}, Level: 0, CreatedCourseIDs: []string{"c2"}},
		{ID: "u3"},
	}
	courses := []Course{
		{ID: "c1", Tags: []int{1, 2}, Level: 1},
		{ID: "c2", Tags: []int{3}, Level: 0},
		{ID: "c3", Tags: []int{1}, Level: 2},
		{ID: "c4", Tags: []int{2, 3}, Level: 3},
		{ID: "c5", Tags: []int{4}, Level: 1},
	}
	return users, courses
}

func TestPropertyKBound(t *testing.T) {
	users, courses := buildPropertyFixture()
	res, err := Run(users, courses, Config{K: 2})
	require.NoError(t, err)

	for _, u := range users {
		assert.LessOrEqual(t, len(rowsForUser(res, u.ID)), 2)
	}
}

func TestPropertyExclusionNeverViolated(t *testing.T) {
	users, courses := buildPropertyFixture()
	res, err := Run(users, courses, Config{K: 10})
	require.NoError(t, err)

	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, r := range res.Rows {
		forbidden := byID[r.UserID].excludedCourses()
		_, excluded := forbidden[r.CourseID]
		assert.False(t, excluded, "user %s must never receive excluded course %s", r.UserID, r.CourseID)
	}
}

func TestPropertyDenseContiguousRanks(t *testing.T) {
	users, courses := buildPropertyFixture()
	res, err := Run(users, courses, Config{K: 4})
	require.NoError(t, err)

	for _, u := range users {
		rows := rowsForUser(res, u.ID)
		for i, r := range rows {
			assert.Equal(t, i+1, r.Rank)
		}
	}
}

func TestPropertyScoredRowsPrecedeFallbackRows(t *testing.T) {
	users, courses := buildPropertyFixture()
	res, err := Run(users, courses, Config{K: 4})
	require.NoError(t, err)

	for _, u := range users {
		rows := rowsForUser(res, u.ID)
		seenFallback := false
		for _, r := range rows {
			if r.Score == 0 {
				seenFallback = true
				continue
			}
			assert.False(t, seenFallback, "a scored row must never follow a fallback row for user %s", u.ID)
		}
	}
}

func TestPropertyQuotaCompletedWhenSupplyPermits(t *testing.T) {
	users, courses := buildPropertyFixture()
	res, err := Run(users, courses, Config{K: 4})
	require.NoError(t, err)

	for _, u := range users {
		available := len(courses) - len(u.excludedCourses())
		rows := rowsForUser(res, u.ID)
		if available >= 4 {
			assert.Len(t, rows, 4)
		}
	}
}

func TestPropertyDeterministic(t *testing.T) {
	users, courses := buildPropertyFixture()
	cfg := Config{K: 3, PenaltyWeights: DefaultPenaltyWeights}

	first, err := Run(users, courses, cfg)
	require.NoError(t, err)
	second, err := Run(users, courses, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
}

func TestPropertyAdjusterMonotonicAcrossLevelDistance(t *testing.T) {
	weights := DefaultPenaltyWeights
	users := []User{{ID: "u1", InterestTags: []int{1}, Level: 0}}
	var prev float64 = 2
	for diff := 0; diff <= len(weights); diff++ {
		courses := []Course{{ID: "c", Tags: []int{1}, Level: diff}}
		res, err := Run(users, courses, Config{K: 1, PenaltyWeights: weights})
		require.NoError(t, err)
		rows := rowsForUser(res, "u1")
		require.Len(t, rows, 1)
		assert.LessOrEqual(t, rows[0].Score, prev)
		prev = rows[0].Score
	}
}

// --- helpers --------------------------------------------------------------

func rowsForUser(res RankedResult, userID string) []RankedPair {
	var rows []RankedPair
	for _, r := range res.Rows {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	return rows
}

func courseIDs(rows []RankedPair) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.CourseID
	}
	return ids
}

// --- config/error-path tests ------------------------------------------

func TestRunRejectsNonPositiveK(t *testing.T) {
	_, err := Run([]User{{ID: "u1"}}, []Course{{ID: "c1"}}, Config{K: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunRejectsEmptyPenaltyWeightVector(t *testing.T) {
	_, err := Run([]User{{ID: "u1"}}, []Course{{ID: "c1"}}, Config{K: 1, PenaltyWeights: []float64{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunEmptyCatalogIsNotAnError(t *testing.T) {
	res, err := Run([]User{{ID: "u1"}}, nil, Config{K: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestRunEmptyCohortIsNotAnError(t *testing.T) {
	res, err := Run(nil, []Course{{ID: "c1"}}, Config{K: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}
