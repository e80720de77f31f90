package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/model"
)

// JobExecutor runs a pending job to completion
type JobExecutor interface {
	ExecuteJob(ctx context.Context, jobID string) error
}

// EnqueueRequest describes a job to create
type EnqueueRequest struct {
	Type        model.JobType
	Name        string
	Description string
	Params      model.JobParams
	StartedBy   string
}

// JobService is the public face of the job queue: enqueue, execute, cancel
// and inspect jobs
type JobService struct {
	repo     JobRepository
	executor JobExecutor
	log      logrus.FieldLogger
}

// NewJobService creates a new job service
func NewJobService(repo JobRepository, executor JobExecutor, log logrus.FieldLogger) *JobService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &JobService{repo: repo, executor: executor, log: log}
}

// Enqueue validates req and inserts a pending job seeded with one info log
// entry. It returns the created job.
func (s *JobService) Enqueue(ctx context.Context, req EnqueueRequest) (*model.Job, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, req.Type)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrJobNameRequired
	}
	if req.Params != nil && req.Params.JobType() != req.Type {
		return nil, fmt.Errorf("%w: %s parameters for a %s job", ErrInvalidJobParams, req.Params.JobType(), req.Type)
	}

	params := map[string]interface{}{}
	if req.Params != nil {
		encoded, err := model.EncodeJobParams(req.Params)
		if err != nil {
			return nil, err
		}
		params = encoded
	}
	// Reject what the executor would reject at dispatch
	if _, err := model.DecodeJobParams(req.Type, params); err != nil {
		return nil, err
	}

	startedBy := req.StartedBy
	if startedBy == "" {
		startedBy = model.SystemActor
	}

	job := &model.Job{
		Type:       req.Type,
		Name:       name,
		StartedBy:  startedBy,
		Parameters: params,
		Logs: []model.JobLogEntry{
			model.NewJobLogEntry(model.LogLevelInfo, fmt.Sprintf("Job queued: %s", name)),
		},
	}
	if req.Description != "" {
		desc := req.Description
		job.Description = &desc
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"job_type":   job.Type,
		"started_by": job.StartedBy,
	}).Info("job queued")
	return job, nil
}

// ExecuteJob runs the pending job jobID; see Executor.ExecuteJob
func (s *JobService) ExecuteJob(ctx context.Context, jobID string) error {
	return s.executor.ExecuteJob(ctx, jobID)
}

// Cancel marks a pending or running job cancelled. A running handler is not
// interrupted but its result is discarded.
func (s *JobService) Cancel(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.repo.Cancel(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job != nil {
		s.log.WithField("job_id", jobID).Info("job cancelled")
		return job, nil
	}

	existing, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil, fmt.Errorf("%w: %s is %s", ErrJobNotCancellable, jobID, existing.Status)
}

// GetJob returns a job by ID
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *JobService) ListJobs(ctx context.Context, status *model.JobStatus, limit, offset int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

// GetJobStats counts jobs per status
func (s *JobService) GetJobStats(ctx context.Context) (model.JobStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return model.JobStats{}, err
	}

	stats := model.JobStats{
		Pending:   counts[model.JobStatusPending],
		Running:   counts[model.JobStatusRunning],
		Completed: counts[model.JobStatusCompleted],
		Failed:    counts[model.JobStatusFailed],
		Cancelled: counts[model.JobStatusCancelled],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// IsPreconditionError reports whether err means the job was never started
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotPending)
}
