package service

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/modhub/internal/model"
)

// CleanupHandler deletes old job rows. Only the failed_jobs target exists.
type CleanupHandler struct {
	jobs JobRepository
	now  func() time.Time
}

// NewCleanupHandler creates a new cleanup handler. A nil now uses time.Now.
func NewCleanupHandler(jobs JobRepository, now func() time.Time) *CleanupHandler {
	if now == nil {
		now = time.Now
	}
	return &CleanupHandler{jobs: jobs, now: now}
}

// Handle implements JobHandler
func (h *CleanupHandler) Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
	p, ok := params.(model.CleanupParams)
	if !ok {
		return model.JobResult{}, fmt.Errorf("%w: expected cleanup parameters", ErrInvalidJobParams)
	}
	if p.Target != model.CleanupTargetFailedJobs {
		return model.JobResult{}, fmt.Errorf("%w: %q", ErrUnknownCleanupTarget, p.Target)
	}

	cutoff := h.now().Add(-time.Duration(p.Days) * 24 * time.Hour)
	run.Logf(ctx, model.LogLevelInfo, "Deleting failed jobs created before %s", cutoff.UTC().Format(time.RFC3339))

	deleted, err := h.jobs.DeleteFailedBefore(ctx, cutoff)
	if err != nil {
		return model.JobResult{}, err
	}

	return model.JobResult{
		Success:        true,
		ProcessedCount: deleted,
		Errors:         []string{},
		Summary:        fmt.Sprintf("Deleted %d failed jobs older than %d days", deleted, p.Days),
	}, nil
}
