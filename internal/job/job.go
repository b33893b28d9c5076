// Package job drives a single batch end to end: download the user and
// course datasets, load and validate them, run the recommendation
// pipeline, upload the result, and report completion via callback.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/lxp-recflow/engine/internal/callback"
	"github.com/lxp-recflow/engine/internal/idempotency"
	"github.com/lxp-recflow/engine/internal/jobqueue"
	"github.com/lxp-recflow/engine/internal/loader"
	"github.com/lxp-recflow/engine/internal/logging"
	"github.com/lxp-recflow/engine/internal/metrics"
	"github.com/lxp-recflow/engine/internal/recommend"
	"github.com/lxp-recflow/engine/internal/storage"
)

// Error codes reported in the completion callback, mirroring the three
// custom exception classes the reference service's exception handlers map
// to HTTP statuses (502, 422, 500 respectively).
const (
	CodeStorageError    = "STORAGE_ERROR"
	CodeParsingError    = "PARSING_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeScoringError    = "SCORING_ERROR"
)

// Driver sequences download -> load -> Run -> upload -> callback for each
// job it is handed by internal/jobqueue.
type Driver struct {
	Storage     *storage.Client
	Loader      *loader.Loader
	Callback    *callback.Client
	Idempotency *idempotency.Store
	DefaultTopK int
	ChunkSize   int
	Penalty     []float64
}

// Handle processes one job and always returns nil: business failures are
// reported via the callback, and infrastructure faults such as a failed
// idempotency write or an undelivered callback are logged here rather than
// returned to the jobqueue subscriber loop.
func (d *Driver) Handle(ctx context.Context, j jobqueue.Job) error {
	start := time.Now()
	ctx = logging.WithBatch(ctx, j.BatchID)
	defer func() { metrics.JobDuration.Observe(time.Since(start).Seconds()) }()

	status, errorCode, errorMsg, resultPath, userCount := d.run(ctx, j)

	outcome := "success"
	if status != idempotency.StatusCompleted {
		outcome = errorCode
	}
	metrics.JobsCompleted.WithLabelValues(outcome).Inc()

	if err := d.Idempotency.Finish(ctx, j.BatchID, status); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to record batch completion status")
	}

	if j.CallbackURL == "" {
		return nil
	}

	payload := callback.Payload{BatchID: j.BatchID, ErrorCode: errorCode, ErrorMessage: errorMsg}
	if status == idempotency.StatusCompleted {
		payload.Status = string(idempotency.StatusCompleted)
		payload.ResultFilePath = resultPath
		payload.UserCount = userCount
		payload.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
	} else {
		payload.Status = string(idempotency.StatusFailed)
		payload.FailedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := d.Callback.Send(ctx, j.CallbackURL, payload); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to deliver completion callback")
	}
	return nil
}

// run executes the pipeline and returns the terminal status, an error
// code/message pair (empty on success), the result object key, and the
// number of distinct users recommendations were produced for.
func (d *Driver) run(ctx context.Context, j jobqueue.Job) (status idempotency.Status, code, message, resultPath string, userCount int) {
	usersRaw, err := d.Storage.Download(ctx, j.UsersFilePath)
	if err != nil {
		return idempotency.StatusFailed, CodeStorageError, err.Error(), "", 0
	}
	coursesRaw, err := d.Storage.Download(ctx, j.CoursesFilePath)
	if err != nil {
		return idempotency.StatusFailed, CodeStorageError, err.Error(), "", 0
	}

	usersPath, err := writeTemp(j.BatchID+"-users", usersRaw)
	if err != nil {
		return idempotency.StatusFailed, CodeStorageError, err.Error(), "", 0
	}
	coursesPath, err := writeTemp(j.BatchID+"-courses", coursesRaw)
	if err != nil {
		return idempotency.StatusFailed, CodeStorageError, err.Error(), "", 0
	}

	users, err := d.Loader.LoadUsers(ctx, usersPath)
	if err != nil {
		return idempotency.StatusFailed, CodeParsingError, err.Error(), "", 0
	}
	courses, err := d.Loader.LoadCourses(ctx, coursesPath)
	if err != nil {
		return idempotency.StatusFailed, CodeParsingError, err.Error(), "", 0
	}

	topK := j.TopK
	if topK == 0 {
		topK = d.DefaultTopK
	}

	cfg := recommend.Config{K: topK, ChunkSize: d.ChunkSize, PenaltyWeights: d.Penalty}
	result, err := recommend.Run(users, courses, cfg)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrInvalidInput):
			return idempotency.StatusFailed, CodeParsingError, err.Error(), "", 0
		case errors.Is(err, recommend.ErrInvalidConfig):
			return idempotency.StatusFailed, CodeValidationError, err.Error(), "", 0
		default:
			return idempotency.StatusFailed, CodeScoringError, err.Error(), "", 0
		}
	}

	resultData, err := json.Marshal(result.Rows)
	if err != nil {
		return idempotency.StatusFailed, CodeScoringError, fmt.Sprintf("marshal result: %v", err), "", 0
	}

	distinctUsers := make(map[string]struct{}, len(result.Rows))
	for _, row := range result.Rows {
		distinctUsers[row.UserID] = struct{}{}
	}

	resultKey := fmt.Sprintf("results/%s.json", j.BatchID)
	if err := d.Storage.Upload(ctx, resultKey, resultData); err != nil {
		return idempotency.StatusFailed, CodeStorageError, err.Error(), "", 0
	}

	return idempotency.StatusCompleted, "", "", resultKey, len(distinctUsers)
}
