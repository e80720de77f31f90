package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/modhub/internal/logger"
	"github.com/forgo/modhub/internal/model"
)

func newTestExecutor(repo *memJobRepo, handlers map[model.JobType]JobHandler) *Executor {
	return NewExecutor(ExecutorConfig{
		JobRepo:  repo,
		Handlers: handlers,
		Logger:   logger.Discard(),
	})
}

func pendingJob(repo *memJobRepo, jobType model.JobType, params map[string]interface{}) *model.Job {
	return repo.put(&model.Job{
		Type:       jobType,
		Name:       "test job",
		Status:     model.JobStatusPending,
		StartedBy:  "user:1",
		Parameters: params,
		Logs:       []model.JobLogEntry{model.NewJobLogEntry(model.LogLevelInfo, "Job queued: test job")},
	})
}

func okHandler(result model.JobResult) JobHandler {
	return JobHandlerFunc(func(context.Context, *JobRun, model.JobParams) (model.JobResult, error) {
		return result, nil
	})
}

// ============================================================================
// Preconditions
// ============================================================================

func TestExecuteJob_NotFound(t *testing.T) {
	repo := newMemJobRepo()
	exec := newTestExecutor(repo, nil)

	err := exec.ExecuteJob(context.Background(), "job:missing")

	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.Equal(t, 0, repo.writeCount())
}

func TestExecuteJob_NotPendingWritesNothing(t *testing.T) {
	for _, status := range []model.JobStatus{
		model.JobStatusRunning,
		model.JobStatusCompleted,
		model.JobStatusFailed,
		model.JobStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := newMemJobRepo()
			job := pendingJob(repo, model.JobTypeCleanup, nil)
			stored := repo.get(job.ID)
			stored.Status = status
			repo.put(stored)
			before := repo.get(job.ID)

			called := false
			exec := newTestExecutor(repo, map[model.JobType]JobHandler{
				model.JobTypeCleanup: JobHandlerFunc(func(context.Context, *JobRun, model.JobParams) (model.JobResult, error) {
					called = true
					return model.JobResult{}, nil
				}),
			})

			err := exec.ExecuteJob(context.Background(), job.ID)

			assert.ErrorIs(t, err, ErrJobNotPending)
			assert.False(t, called)
			after := repo.get(job.ID)
			assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
			assert.Equal(t, before.Status, after.Status)
			assert.Len(t, after.Logs, len(before.Logs))
		})
	}
}

// ============================================================================
// Success and failure
// ============================================================================

func TestExecuteJob_Success(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)

	var seen *JobRun
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeGenerateSlugs: JobHandlerFunc(func(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
			seen = run
			assert.IsType(t, model.SlugParams{}, params)
			run.Progress(ctx, 40)
			run.Logf(ctx, model.LogLevelWarn, "halfway")
			return model.JobResult{Success: true, ProcessedCount: 3, Summary: "Generated 3 slugs"}, nil
		}),
	})

	require.NoError(t, exec.ExecuteJob(context.Background(), job.ID))
	require.NotNil(t, seen)
	assert.Equal(t, model.JobStatusRunning, seen.Job.Status)
	assert.NotEmpty(t, seen.Job.RunID)

	done := repo.get(job.ID)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.DurationSeconds)
	assert.GreaterOrEqual(t, *done.DurationSeconds, 0)
	require.NotNil(t, done.Results)
	assert.True(t, done.Results.Success)
	assert.Equal(t, 3, done.Results.ProcessedCount)
	assert.NotNil(t, done.Results.Errors)

	// queued, started, handler line, completed
	require.Len(t, done.Logs, 4)
	assert.Equal(t, "Job started: test job", done.Logs[1].Message)
	assert.Equal(t, model.LogLevelWarn, done.Logs[2].Level)
	assert.Equal(t, "Job completed: Generated 3 slugs", done.Logs[3].Message)
}

func TestExecuteJob_HandlerErrorFailsJob(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeCleanup, map[string]interface{}{"target": "sessions"})
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeCleanup: NewCleanupHandler(repo, nil),
	})

	err := exec.ExecuteJob(context.Background(), job.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCleanupTarget)

	failed := repo.get(job.ID)
	assert.Equal(t, model.JobStatusFailed, failed.Status)
	require.NotNil(t, failed.CompletedAt)
	require.NotNil(t, failed.DurationSeconds)
	require.NotNil(t, failed.Results)
	assert.False(t, failed.Results.Success)
	assert.Equal(t, 1, failed.Results.ErrorCount)
	require.Len(t, failed.Results.Errors, 1)
	assert.Contains(t, failed.Results.Errors[0], "sessions")
	last := failed.Logs[len(failed.Logs)-1]
	assert.Equal(t, model.LogLevelError, last.Level)
	assert.Contains(t, last.Message, "Job failed:")
}

func TestExecuteJob_PanicFailsJob(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeGenerateSlugs: JobHandlerFunc(func(context.Context, *JobRun, model.JobParams) (model.JobResult, error) {
			panic("slug table exploded")
		}),
	})

	err := exec.ExecuteJob(context.Background(), job.ID)

	assert.ErrorIs(t, err, ErrHandlerPanic)
	failed := repo.get(job.ID)
	assert.Equal(t, model.JobStatusFailed, failed.Status)
	require.NotNil(t, failed.Results)
	assert.Contains(t, failed.Results.Errors[0], "slug table exploded")
}

func TestExecuteJob_UnknownTypeFailsJob(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobType("reindex"), nil)
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{})

	err := exec.ExecuteJob(context.Background(), job.ID)

	assert.ErrorIs(t, err, ErrUnknownJobType)
	assert.Equal(t, model.JobStatusFailed, repo.get(job.ID).Status)
}

func TestExecuteJob_InvalidParamsFailsJob(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeScrapeReleases, map[string]interface{}{"scope": "single"})
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeScrapeReleases: okHandler(model.JobResult{Success: true}),
	})

	err := exec.ExecuteJob(context.Background(), job.ID)

	assert.ErrorIs(t, err, ErrInvalidJobParams)
	assert.Equal(t, model.JobStatusFailed, repo.get(job.ID).Status)
}

func TestExecuteJob_SecondRunRejected(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)
	calls := 0
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeGenerateSlugs: JobHandlerFunc(func(context.Context, *JobRun, model.JobParams) (model.JobResult, error) {
			calls++
			return model.JobResult{Success: true}, nil
		}),
	})

	require.NoError(t, exec.ExecuteJob(context.Background(), job.ID))
	assert.ErrorIs(t, exec.ExecuteJob(context.Background(), job.ID), ErrJobNotPending)
	assert.Equal(t, 1, calls)
}

// ============================================================================
// Cancellation
// ============================================================================

func TestExecuteJob_CancelledWhileRunningStaysCancelled(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeGenerateSlugs: JobHandlerFunc(func(ctx context.Context, run *JobRun, _ model.JobParams) (model.JobResult, error) {
			_, err := repo.Cancel(ctx, run.Job.ID)
			require.NoError(t, err)
			run.Progress(ctx, 50)
			run.Logf(ctx, model.LogLevelInfo, "ignored")
			return model.JobResult{Success: true}, nil
		}),
	})

	require.NoError(t, exec.ExecuteJob(context.Background(), job.ID))

	got := repo.get(job.ID)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
	assert.Nil(t, got.Results)
	assert.Equal(t, 0, got.Progress)
}

func TestExecuteJob_FinishSurvivesCancelledContext(t *testing.T) {
	repo := newMemJobRepo()
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)
	ctx, cancel := context.WithCancel(context.Background())
	exec := newTestExecutor(repo, map[model.JobType]JobHandler{
		model.JobTypeGenerateSlugs: JobHandlerFunc(func(ctx context.Context, _ *JobRun, _ model.JobParams) (model.JobResult, error) {
			cancel()
			return model.JobResult{}, ctx.Err()
		}),
	})

	err := exec.ExecuteJob(ctx, job.ID)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.JobStatusFailed, repo.get(job.ID).Status)
}

func TestExecuteJob_DurationUsesClock(t *testing.T) {
	repo := newMemJobRepo()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return start }
	job := pendingJob(repo, model.JobTypeGenerateSlugs, nil)

	exec := NewExecutor(ExecutorConfig{
		JobRepo:  repo,
		Handlers: map[model.JobType]JobHandler{model.JobTypeGenerateSlugs: okHandler(model.JobResult{Success: true})},
		Logger:   logger.Discard(),
		Now:      func() time.Time { return start.Add(2500 * time.Millisecond) },
	})

	require.NoError(t, exec.ExecuteJob(context.Background(), job.ID))
	got := repo.get(job.ID)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 2, *got.DurationSeconds)
}
