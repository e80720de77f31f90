package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/model"
)

// JobRepository is the persistent job store
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ListPending(ctx context.Context, limit int) ([]*model.Job, error)
	List(ctx context.Context, status *model.JobStatus, limit, offset int) ([]*model.Job, error)
	ExistsPending(ctx context.Context, jobType model.JobType, name string) (bool, error)
	ClaimPending(ctx context.Context, id, runID string, entry model.JobLogEntry) (*model.Job, error)
	UpdateProgress(ctx context.Context, id, runID string, progress int) error
	AppendLog(ctx context.Context, id, runID string, entry model.JobLogEntry) error
	Finish(ctx context.Context, id, runID string, c model.JobCompletion) (bool, error)
	Cancel(ctx context.Context, id string) (*model.Job, error)
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)
}

// JobHandler runs one type of job
type JobHandler interface {
	Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error)
}

// JobHandlerFunc adapts a function to JobHandler
type JobHandlerFunc func(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error)

// Handle implements JobHandler
func (f JobHandlerFunc) Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
	return f(ctx, run, params)
}

// JobRun is a claimed job as seen by its handler. Progress and log writes are
// best-effort and ignored once the job is no longer running under this run.
type JobRun struct {
	Job  *model.Job
	repo JobRepository
	log  *logrus.Entry
}

// Progress records pct (0-100) on the job
func (r *JobRun) Progress(ctx context.Context, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if err := r.repo.UpdateProgress(ctx, r.Job.ID, r.Job.RunID, pct); err != nil {
		r.log.WithError(err).Warn("failed to update job progress")
	}
}

// Logf appends a line to the job log and mirrors it to the process log
func (r *JobRun) Logf(ctx context.Context, level model.LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logAt(r.log, level, msg)
	if err := r.repo.AppendLog(ctx, r.Job.ID, r.Job.RunID, model.NewJobLogEntry(level, msg)); err != nil {
		r.log.WithError(err).Warn("failed to append job log")
	}
}

// Actor returns the user ID or SystemActor that started the job
func (r *JobRun) Actor() string {
	return r.Job.StartedBy
}

// ExecutorConfig holds dependencies for the executor
type ExecutorConfig struct {
	JobRepo  JobRepository
	Handlers map[model.JobType]JobHandler
	Logger   logrus.FieldLogger

	// Now defaults to time.Now
	Now func() time.Time
}

// Executor runs pending jobs through their type's handler and owns every
// status transition after pending
type Executor struct {
	repo     JobRepository
	handlers map[model.JobType]JobHandler
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewExecutor creates a new executor
func NewExecutor(cfg ExecutorConfig) *Executor {
	handlers := make(map[model.JobType]JobHandler, len(cfg.Handlers))
	for t, h := range cfg.Handlers {
		handlers[t] = h
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{
		repo:     cfg.JobRepo,
		handlers: handlers,
		log:      log,
		now:      now,
	}
}

// ExecuteJob runs the pending job jobID to completion.
//
// A missing job returns ErrJobNotFound and a job that is not pending returns
// ErrJobNotPending; neither writes anything. Once claimed, the job ends
// completed when its handler returns a result, or failed when the handler
// errors or panics, in which case the error is also returned. A job cancelled
// while its handler runs stays cancelled.
func (e *Executor) ExecuteJob(ctx context.Context, jobID string) error {
	job, err := e.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != model.JobStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrJobNotPending, jobID, job.Status)
	}

	runID := uuid.NewString()
	startMsg := fmt.Sprintf("Job started: %s", job.Name)
	claimed, err := e.repo.ClaimPending(ctx, jobID, runID, model.NewJobLogEntry(model.LogLevelInfo, startMsg))
	if err != nil {
		return fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}
	if claimed == nil {
		return fmt.Errorf("%w: %s was claimed elsewhere", ErrJobNotPending, jobID)
	}
	if claimed.RunID == "" {
		claimed.RunID = runID
	}

	jobLog := e.log.WithFields(logrus.Fields{
		"job_id":   claimed.ID,
		"job_type": claimed.Type,
		"run_id":   runID,
	})
	jobLog.Info(startMsg)

	startedAt := e.now()
	if claimed.StartedAt != nil {
		startedAt = *claimed.StartedAt
	}

	run := &JobRun{Job: claimed, repo: e.repo, log: jobLog}
	result, handlerErr := e.dispatch(ctx, run)

	completedAt := e.now()
	duration := int(completedAt.Sub(startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	// Terminal writes must land even if the caller's context is done
	writeCtx := context.WithoutCancel(ctx)

	if handlerErr != nil {
		msg := fmt.Sprintf("Job failed: %v", handlerErr)
		jobLog.WithError(handlerErr).Error("job failed")
		_, err := e.repo.Finish(writeCtx, claimed.ID, runID, model.JobCompletion{
			Status:          model.JobStatusFailed,
			CompletedAt:     completedAt,
			DurationSeconds: duration,
			Results: model.JobResult{
				Success:    false,
				ErrorCount: 1,
				Errors:     []string{handlerErr.Error()},
				Summary:    msg,
			},
			Log: model.NewJobLogEntry(model.LogLevelError, msg),
		})
		if err != nil {
			jobLog.WithError(err).Error("failed to record job failure")
		}
		return fmt.Errorf("job %s failed: %w", jobID, handlerErr)
	}

	if result.Errors == nil {
		result.Errors = []string{}
	}
	msg := fmt.Sprintf("Job completed: %s", result.Summary)
	ok, err := e.repo.Finish(writeCtx, claimed.ID, runID, model.JobCompletion{
		Status:          model.JobStatusCompleted,
		Progress:        100,
		CompletedAt:     completedAt,
		DurationSeconds: duration,
		Results:         result,
		Log:             model.NewJobLogEntry(model.LogLevelInfo, msg),
	})
	if err != nil {
		return fmt.Errorf("failed to record completion of job %s: %w", jobID, err)
	}
	if !ok {
		jobLog.Warn("job was cancelled while running; result discarded")
		return nil
	}

	jobLog.WithFields(logrus.Fields{
		"success":          result.Success,
		"processed":        result.ProcessedCount,
		"errors":           result.ErrorCount,
		"duration_seconds": duration,
	}).Info(msg)
	return nil
}

// dispatch decodes the job's parameters and runs its handler, converting a
// panic into an error
func (e *Executor) dispatch(ctx context.Context, run *JobRun) (result model.JobResult, err error) {
	handler, ok := e.handlers[run.Job.Type]
	if !ok {
		return model.JobResult{}, fmt.Errorf("%w: %s", ErrUnknownJobType, run.Job.Type)
	}

	params, err := model.DecodeJobParams(run.Job.Type, run.Job.Parameters)
	if err != nil {
		return model.JobResult{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler.Handle(ctx, run, params)
}

func logAt(log logrus.FieldLogger, level model.LogLevel, msg string) {
	switch level {
	case model.LogLevelError:
		log.Error(msg)
	case model.LogLevelWarn:
		log.Warn(msg)
	default:
		log.Info(msg)
	}
}
