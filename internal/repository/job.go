package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// JobRepository handles job data access
type JobRepository struct {
	db database.Database
}

// NewJobRepository creates a new job repository
func NewJobRepository(db database.Database) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a pending job and fills in its ID and timestamps
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	params := job.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}
	logs := make([]interface{}, 0, len(job.Logs))
	for _, entry := range job.Logs {
		logs = append(logs, logDocument(entry))
	}

	vars := map[string]interface{}{
		"type":       job.Type,
		"name":       job.Name,
		"status":     model.JobStatusPending,
		"started_by": job.StartedBy,
		"parameters": params,
		"logs":       logs,
	}

	optionalFields := ""
	if job.Description != nil && *job.Description != "" {
		optionalFields = ",\n\t\t\tdescription: $description"
		vars["description"] = *job.Description
	}

	query := `
		CREATE job CONTENT {
			type: $type,
			name: $name,
			status: $status,
			progress: 0,
			started_by: $started_by,
			parameters: $parameters,
			logs: $logs,
			created_at: time::now(),
			updated_at: time::now()` + optionalFields + `
		}
	`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	row, ok := firstRow(result)
	if !ok {
		return fmt.Errorf("failed to create job: %w", errUnexpectedFormat)
	}
	created := parseJob(row)
	job.ID = created.ID
	job.Status = created.Status
	job.CreatedAt = created.CreatedAt
	job.UpdatedAt = created.UpdatedAt
	return nil
}

// GetByID retrieves a job by ID; it returns nil when the job does not exist
func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.Job, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedFormat
	}
	return parseJob(data), nil
}

// ListPending returns pending jobs oldest first
func (r *JobRepository) ListPending(ctx context.Context, limit int) ([]*model.Job, error) {
	query := `SELECT * FROM job WHERE status = "pending" ORDER BY created_at ASC LIMIT $limit`

	result, err := r.db.Query(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return parseJobs(result), nil
}

// List returns jobs newest first, optionally filtered by status
func (r *JobRepository) List(ctx context.Context, status *model.JobStatus, limit, offset int) ([]*model.Job, error) {
	query := `SELECT * FROM job`
	vars := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	if status != nil {
		query += ` WHERE status = $status`
		vars["status"] = *status
	}

	query += ` ORDER BY created_at DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return parseJobs(result), nil
}

// ExistsPending reports whether a pending job with the given type and name exists
func (r *JobRepository) ExistsPending(ctx context.Context, jobType model.JobType, name string) (bool, error) {
	query := `
		SELECT count() AS count FROM job
		WHERE status = "pending" AND type = $type AND name = $name
		GROUP ALL
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"type": jobType,
		"name": name,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check pending jobs: %w", err)
	}
	return extractCount(result) > 0, nil
}

// ClaimPending moves a pending job to running in a single conditional update,
// stamping runID and appending entry. It returns nil when the job was not
// pending, so at most one caller can claim a job.
func (r *JobRepository) ClaimPending(ctx context.Context, id, runID string, entry model.JobLogEntry) (*model.Job, error) {
	query := `
		UPDATE type::record($id) SET
			status = "running",
			run_id = $run_id,
			started_at = time::now(),
			updated_at = time::now(),
			logs += $entry
		WHERE status = "pending"
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"id":     id,
		"run_id": runID,
		"entry":  logDocument(entry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	row, ok := firstRow(result)
	if !ok {
		return nil, nil
	}
	return parseJob(row), nil
}

// UpdateProgress raises the progress of a running job. Lower values are ignored.
func (r *JobRepository) UpdateProgress(ctx context.Context, id, runID string, progress int) error {
	query := `
		UPDATE type::record($id) SET progress = $progress, updated_at = time::now()
		WHERE status = "running" AND run_id = $run_id AND progress < $progress
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"id":       id,
		"run_id":   runID,
		"progress": progress,
	})
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// AppendLog appends an entry to the log of a running job
func (r *JobRepository) AppendLog(ctx context.Context, id, runID string, entry model.JobLogEntry) error {
	query := `
		UPDATE type::record($id) SET logs += $entry, updated_at = time::now()
		WHERE status = "running" AND run_id = $run_id
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"id":     id,
		"run_id": runID,
		"entry":  logDocument(entry),
	})
	if err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

// Finish writes the terminal state of a running job. Progress never decreases.
// It reports false when the job is no longer running under runID, for example
// after a cancellation.
func (r *JobRepository) Finish(ctx context.Context, id, runID string, c model.JobCompletion) (bool, error) {
	results, err := toDocument(c.Results)
	if err != nil {
		return false, fmt.Errorf("failed to encode job results: %w", err)
	}

	query := `
		UPDATE type::record($id) SET
			status = $status,
			progress = math::max([progress, $progress]),
			completed_at = <datetime>$completed_at,
			duration_seconds = $duration,
			results = $results,
			logs += $entry,
			updated_at = time::now()
		WHERE status = "running" AND run_id = $run_id
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"id":           id,
		"run_id":       runID,
		"status":       c.Status,
		"progress":     c.Progress,
		"completed_at": formatTime(c.CompletedAt),
		"duration":     c.DurationSeconds,
		"results":      results,
		"entry":        logDocument(c.Log),
	})
	if err != nil {
		return false, fmt.Errorf("failed to finish job: %w", err)
	}

	_, ok := firstRow(result)
	return ok, nil
}

// Cancel marks a pending or running job cancelled. It returns nil when the job
// is missing or already terminal.
func (r *JobRepository) Cancel(ctx context.Context, id string) (*model.Job, error) {
	query := `
		UPDATE type::record($id) SET
			status = "cancelled",
			completed_at = time::now(),
			updated_at = time::now()
		WHERE status IN ["pending", "running"]
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}

	row, ok := firstRow(result)
	if !ok {
		return nil, nil
	}
	return parseJob(row), nil
}

// DeleteFailedBefore deletes failed jobs created before cutoff and returns how many were removed
func (r *JobRepository) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE job WHERE status = "failed" AND created_at < <datetime>$cutoff RETURN BEFORE`

	result, err := r.db.Query(ctx, query, map[string]interface{}{"cutoff": formatTime(cutoff)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete failed jobs: %w", err)
	}
	return len(allRows(result)), nil
}

// CountByStatus returns the number of jobs in each status
func (r *JobRepository) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	result, err := r.db.Query(ctx, `SELECT status, count() AS count FROM job GROUP BY status`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := make(map[model.JobStatus]int)
	for _, row := range allRows(result) {
		counts[model.JobStatus(getString(row, "status"))] = getInt(row, "count")
	}
	return counts, nil
}

// Log timestamps are stored as RFC3339 strings inside the logs array
func logDocument(e model.JobLogEntry) map[string]interface{} {
	return map[string]interface{}{
		"timestamp": formatTime(e.Timestamp),
		"level":     e.Level,
		"message":   e.Message,
	}
}

func parseJob(data map[string]interface{}) *model.Job {
	job := &model.Job{
		ID:          recordID(data["id"]),
		Type:        model.JobType(getString(data, "type")),
		Name:        getString(data, "name"),
		Description: getStringPtr(data, "description"),
		Status:      model.JobStatus(getString(data, "status")),
		Progress:    getInt(data, "progress"),
		StartedBy:   getString(data, "started_by"),
		RunID:       getString(data, "run_id"),
		StartedAt:   getTime(data, "started_at"),
		CompletedAt: getTime(data, "completed_at"),
		Parameters:  getMap(data, "parameters"),
		Logs:        make([]model.JobLogEntry, 0),
	}

	if job.Parameters == nil {
		job.Parameters = map[string]interface{}{}
	}
	if v, ok := data["duration_seconds"]; ok && v != nil {
		d := getInt(data, "duration_seconds")
		job.DurationSeconds = &d
	}
	if raw := getMap(data, "results"); raw != nil {
		var res model.JobResult
		if err := decodeJSON(raw, &res); err == nil {
			job.Results = &res
		}
	}
	if raw, ok := data["logs"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			entry := model.JobLogEntry{
				Level:   model.LogLevel(getString(m, "level")),
				Message: getString(m, "message"),
			}
			if t := getTime(m, "timestamp"); t != nil {
				entry.Timestamp = *t
			}
			job.Logs = append(job.Logs, entry)
		}
	}
	if t := getTime(data, "created_at"); t != nil {
		job.CreatedAt = *t
	}
	if t := getTime(data, "updated_at"); t != nil {
		job.UpdatedAt = *t
	}

	return job
}

func parseJobs(result []interface{}) []*model.Job {
	rows := allRows(result)
	jobs := make([]*model.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, parseJob(row))
	}
	return jobs
}
