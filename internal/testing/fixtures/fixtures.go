package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/repository"
	"github.com/google/uuid"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

func shortID() string {
	return uuid.NewString()[:8]
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Module Fixtures
// ============================================================================

// ModuleOpts customizes module creation
type ModuleOpts struct {
	Name         string
	Author       string
	Slug         *string
	SourceURL    *string
	IsOpenSource bool
	IsPublished  bool
}

// CreateModule creates a published open-source module with a GitHub source URL
func (f *Factory) CreateModule(t *testing.T, opts ...func(*ModuleOpts)) *model.Module {
	t.Helper()

	name := "module-" + shortID()
	source := fmt.Sprintf("https://github.com/acme/%s", name)
	o := &ModuleOpts{
		Name:         name,
		Author:       "Acme",
		SourceURL:    &source,
		IsOpenSource: true,
		IsPublished:  true,
	}
	for _, fn := range opts {
		fn(o)
	}

	m := &model.Module{
		Name:         o.Name,
		Author:       o.Author,
		Slug:         o.Slug,
		SourceURL:    o.SourceURL,
		IsOpenSource: o.IsOpenSource,
		IsPublished:  o.IsPublished,
	}
	if err := repository.NewModuleRepository(f.db).Create(ctx(t), m); err != nil {
		t.Fatalf("fixtures: create module: %v", err)
	}
	return m
}

// ============================================================================
// Sync Config Fixtures
// ============================================================================

// CreateSyncConfig creates an enabled sync config for m pointing at repo
func (f *Factory) CreateSyncConfig(t *testing.T, m *model.Module, repo string, enabled bool) *model.ModuleSyncConfig {
	t.Helper()

	cfg := &model.ModuleSyncConfig{
		ModuleID:   m.ID,
		GitHubRepo: repo,
		Enabled:    enabled,
	}
	if err := repository.NewSyncConfigRepository(f.db).Create(ctx(t), cfg); err != nil {
		t.Fatalf("fixtures: create sync config: %v", err)
	}
	return cfg
}

// SetLastSync overrides last_sync_at of a module's config
func (f *Factory) SetLastSync(t *testing.T, moduleID string, at time.Time) {
	t.Helper()

	query := `UPDATE module_sync_config SET last_sync_at = <datetime>$at WHERE module_id = type::record($module_id)`
	err := f.db.Execute(ctx(t), query, map[string]interface{}{
		"module_id": moduleID,
		"at":        at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("fixtures: set last sync: %v", err)
	}
}

// ============================================================================
// Release Fixtures
// ============================================================================

// CreateRelease stores a release for m as if synced from GitHub
func (f *Factory) CreateRelease(t *testing.T, m *model.Module, version string, githubID int64, latest bool) *model.Release {
	t.Helper()

	tag := "v" + version
	rel := &model.Release{
		ModuleID:        m.ID,
		Version:         version,
		DownloadURL:     fmt.Sprintf("https://github.com/acme/%s/releases/download/%s/%s.zip", m.Name, tag, m.Name),
		Size:            "1.00 MB",
		IsLatest:        latest,
		GitHubReleaseID: &githubID,
		GitHubTagName:   &tag,
	}
	if err := repository.NewReleaseRepository(f.db).Create(ctx(t), rel); err != nil {
		t.Fatalf("fixtures: create release: %v", err)
	}
	return rel
}

// ============================================================================
// Job Fixtures
// ============================================================================

// JobOpts customizes job creation
type JobOpts struct {
	Type       model.JobType
	Name       string
	StartedBy  string
	Parameters map[string]interface{}
}

// CreateJob creates a pending job
func (f *Factory) CreateJob(t *testing.T, opts ...func(*JobOpts)) *model.Job {
	t.Helper()

	o := &JobOpts{
		Type:       model.JobTypeCleanup,
		Name:       "job-" + shortID(),
		StartedBy:  model.SystemActor,
		Parameters: map[string]interface{}{"target": model.CleanupTargetFailedJobs},
	}
	for _, fn := range opts {
		fn(o)
	}

	job := &model.Job{
		Type:       o.Type,
		Name:       o.Name,
		StartedBy:  o.StartedBy,
		Parameters: o.Parameters,
		Logs:       []model.JobLogEntry{model.NewJobLogEntry(model.LogLevelInfo, "created by fixtures")},
	}
	if err := repository.NewJobRepository(f.db).Create(ctx(t), job); err != nil {
		t.Fatalf("fixtures: create job: %v", err)
	}
	return job
}

// ForceJobState sets status and created_at directly, bypassing the lifecycle
func (f *Factory) ForceJobState(t *testing.T, jobID string, status model.JobStatus, createdAt time.Time) {
	t.Helper()

	query := `UPDATE type::record($id) SET status = $status, created_at = <datetime>$created_at`
	err := f.db.Execute(ctx(t), query, map[string]interface{}{
		"id":         jobID,
		"status":     status,
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("fixtures: force job state: %v", err)
	}
}
