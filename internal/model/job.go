package model

import "time"

// JobType identifies the handler that executes a job
type JobType string

const (
	JobTypeScrapeReleases    JobType = "scrape_releases"
	JobTypeCleanup           JobType = "cleanup"
	JobTypeSyncGitHubConfigs JobType = "sync_github_configs"
	JobTypeGenerateSlugs     JobType = "generate_slugs"
)

// Valid reports whether t is a known job type
func (t JobType) Valid() bool {
	switch t {
	case JobTypeScrapeReleases, JobTypeCleanup, JobTypeSyncGitHubConfigs, JobTypeGenerateSlugs:
		return true
	}
	return false
}

// JobStatus represents the lifecycle stage of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // Waiting for the scheduler sweep
	JobStatusRunning   JobStatus = "running"   // Claimed by an executor
	JobStatusCompleted JobStatus = "completed" // Handler returned a result
	JobStatusFailed    JobStatus = "failed"    // Handler returned an error
	JobStatusCancelled JobStatus = "cancelled" // Cancelled externally; terminal
)

// IsTerminal reports whether no further transitions are possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// LogLevel is the severity of a job log entry
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SystemActor attributes jobs created by the scheduler rather than a user
const SystemActor = "SYSTEM"

// Job is a unit of background work with persisted status, progress and logs.
// Progress runs 0-100 and StartedBy is a user ID or SystemActor. RunID is
// stamped by the executor that claimed the job and guards its later writes.
type Job struct {
	ID              string                 `json:"id"`
	Type            JobType                `json:"type"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description,omitempty"`
	Status          JobStatus              `json:"status"`
	Progress        int                    `json:"progress"`
	StartedBy       string                 `json:"started_by"`
	RunID           string                 `json:"run_id,omitempty"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	DurationSeconds *int                   `json:"duration_seconds,omitempty"`
	Parameters      map[string]interface{} `json:"parameters"`
	Results         *JobResult             `json:"results,omitempty"`
	Logs            []JobLogEntry          `json:"logs"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// JobResult is the outcome reported by a job handler
type JobResult struct {
	Success        bool     `json:"success"`
	ProcessedCount int      `json:"processed_count"`
	ErrorCount     int      `json:"error_count"`
	Errors         []string `json:"errors"`
	Summary        string   `json:"summary"`
}

// JobLogEntry is one line of a job's append-only log
type JobLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// NewJobLogEntry creates a log entry stamped with the current UTC time
func NewJobLogEntry(level LogLevel, message string) JobLogEntry {
	return JobLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
	}
}

// JobCompletion carries the terminal fields written when a job finishes
type JobCompletion struct {
	Status          JobStatus
	Progress        int
	CompletedAt     time.Time
	DurationSeconds int
	Results         JobResult
	Log             JobLogEntry
}

// JobStats counts jobs per status
type JobStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// AutoScrapeJobName is the name used for scheduler-created scrape jobs;
// at most one pending job with this name may exist at a time.
const AutoScrapeJobName = "Automatic GitHub Scrape"

// AutoConfigSyncJobName is the name used for scheduler-created config sync jobs
const AutoConfigSyncJobName = "Automatic GitHub Config Sync"
