// Package recommend implements a content-based course recommendation
// pipeline for a single user cohort and course catalog.
//
// # Architecture
//
// The pipeline runs four stages in strict order:
//
//   - Scorer: TF-IDF cosine similarity between user interest tags and
//     course tags.
//   - ExclusionFilter: removes courses a user already purchased or created.
//   - Adjuster: multiplies scores by a level-distance penalty factor.
//   - Ranker: per-user descending sort, truncated to top-K, dense ranked.
//
// Large cohorts are split into fixed-size chunks and run independently
// against the full course catalog (chunking is semantically transparent:
// it never changes a user's final result). After ranking, a popularity
// fallback backfills any user short of K recommendations.
//
// # Determinism
//
// Run is a pure function of its inputs: identical users, courses and K
// produce an identical RankedResult on every invocation, including tie
// order. There is no hidden state between calls.
//
// # Thread Safety
//
// Run holds no package-level mutable state and is safe to call
// concurrently with different inputs. Internally it may parallelize
// per-chunk scoring; the final result is unaffected by that parallelism.
package recommend
