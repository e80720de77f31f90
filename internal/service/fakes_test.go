package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/logger"
	"github.com/forgo/modhub/internal/model"
)

// ============================================================================
// In-memory job store
// ============================================================================

type memJobRepo struct {
	mu     sync.Mutex
	jobs   map[string]*model.Job
	nextID int
	writes int
	now    func() time.Time
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*model.Job), now: time.Now}
}

func cloneJob(j *model.Job) *model.Job {
	c := *j
	c.Logs = append([]model.JobLogEntry(nil), j.Logs...)
	if j.Results != nil {
		r := *j.Results
		c.Results = &r
	}
	return &c
}

// put stores job as-is, assigning an ID when empty
func (r *memJobRepo) put(job *model.Job) *model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		r.nextID++
		job.ID = fmt.Sprintf("job:%d", r.nextID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	r.jobs[job.ID] = cloneJob(job)
	return job
}

func (r *memJobRepo) get(id string) *model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		return cloneJob(j)
	}
	return nil
}

func (r *memJobRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *memJobRepo) Create(_ context.Context, job *model.Job) error {
	job.Status = model.JobStatusPending
	r.put(job)
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
	return nil
}

func (r *memJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	return r.get(id), nil
}

func (r *memJobRepo) sorted(filter func(*model.Job) bool) []*model.Job {
	out := []*model.Job{}
	for _, j := range r.jobs {
		if filter(j) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}

func (r *memJobRepo) ListPending(_ context.Context, limit int) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(j *model.Job) bool { return j.Status == model.JobStatusPending })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) List(_ context.Context, status *model.JobStatus, limit, offset int) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(j *model.Job) bool { return status == nil || j.Status == *status })
	for a, b := 0, len(out)-1; a < b; a, b = a+1, b-1 {
		out[a], out[b] = out[b], out[a]
	}
	if offset >= len(out) {
		return []*model.Job{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) ExistsPending(_ context.Context, jobType model.JobType, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Status == model.JobStatusPending && j.Type == jobType && j.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobRepo) ClaimPending(_ context.Context, id, runID string, entry model.JobLogEntry) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != model.JobStatusPending {
		return nil, nil
	}
	now := r.now()
	j.Status = model.JobStatusRunning
	j.RunID = runID
	j.StartedAt = &now
	j.Logs = append(j.Logs, entry)
	j.UpdatedAt = now
	r.writes++
	return cloneJob(j), nil
}

func (r *memJobRepo) running(id, runID string) *model.Job {
	j, ok := r.jobs[id]
	if !ok || j.Status != model.JobStatusRunning || j.RunID != runID {
		return nil
	}
	return j
}

func (r *memJobRepo) UpdateProgress(_ context.Context, id, runID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j := r.running(id, runID); j != nil && j.Progress < progress {
		j.Progress = progress
		j.UpdatedAt = r.now()
		r.writes++
	}
	return nil
}

func (r *memJobRepo) AppendLog(_ context.Context, id, runID string, entry model.JobLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j := r.running(id, runID); j != nil {
		j.Logs = append(j.Logs, entry)
		j.UpdatedAt = r.now()
		r.writes++
	}
	return nil
}

func (r *memJobRepo) Finish(_ context.Context, id, runID string, c model.JobCompletion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.running(id, runID)
	if j == nil {
		return false, nil
	}
	completed := c.CompletedAt
	duration := c.DurationSeconds
	results := c.Results
	j.Status = c.Status
	if c.Progress > j.Progress {
		j.Progress = c.Progress
	}
	j.CompletedAt = &completed
	j.DurationSeconds = &duration
	j.Results = &results
	j.Logs = append(j.Logs, c.Log)
	j.UpdatedAt = r.now()
	r.writes++
	return true, nil
}

func (r *memJobRepo) Cancel(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status.IsTerminal() {
		return nil, nil
	}
	now := r.now()
	j.Status = model.JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	r.writes++
	return cloneJob(j), nil
}

func (r *memJobRepo) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if j.Status == model.JobStatusFailed && j.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	r.writes += n
	return n, nil
}

func (r *memJobRepo) CountByStatus(_ context.Context) (map[model.JobStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.JobStatus]int{}
	for _, j := range r.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// ============================================================================
// In-memory release store
// ============================================================================

type memReleaseRepo struct {
	releases  []*model.Release
	createErr func(rel *model.Release) error
	nextID    int
}

func (r *memReleaseRepo) Create(_ context.Context, rel *model.Release) error {
	if r.createErr != nil {
		if err := r.createErr(rel); err != nil {
			return err
		}
	}
	for _, existing := range r.releases {
		if existing.ModuleID == rel.ModuleID && rel.GitHubReleaseID != nil &&
			existing.GitHubReleaseID != nil && *existing.GitHubReleaseID == *rel.GitHubReleaseID {
			return fmt.Errorf("failed to create release: %w", database.ErrDuplicate)
		}
	}
	r.nextID++
	c := *rel
	c.ID = fmt.Sprintf("release:%d", r.nextID)
	rel.ID = c.ID
	r.releases = append(r.releases, &c)
	return nil
}

func (r *memReleaseRepo) ListGitHubReleaseIDs(_ context.Context, moduleID string) ([]int64, error) {
	ids := []int64{}
	for _, rel := range r.releases {
		if rel.ModuleID == moduleID && rel.GitHubReleaseID != nil {
			ids = append(ids, *rel.GitHubReleaseID)
		}
	}
	return ids, nil
}

func (r *memReleaseRepo) ListVersions(_ context.Context, moduleID string) ([]model.StoredVersion, error) {
	out := []model.StoredVersion{}
	for _, rel := range r.releases {
		if rel.ModuleID == moduleID {
			out = append(out, model.StoredVersion{ID: rel.ID, Version: rel.Version})
		}
	}
	return out, nil
}

func (r *memReleaseRepo) ClearLatest(_ context.Context, moduleID string) error {
	for _, rel := range r.releases {
		if rel.ModuleID == moduleID {
			rel.IsLatest = false
		}
	}
	return nil
}

func (r *memReleaseRepo) SetLatest(_ context.Context, moduleID, releaseID string) error {
	for _, rel := range r.releases {
		if rel.ModuleID == moduleID {
			rel.IsLatest = rel.ID == releaseID
		}
	}
	return nil
}

func (r *memReleaseRepo) byModule(moduleID string) []*model.Release {
	out := []*model.Release{}
	for _, rel := range r.releases {
		if rel.ModuleID == moduleID {
			out = append(out, rel)
		}
	}
	return out
}

func (r *memReleaseRepo) latest(moduleID string) []*model.Release {
	out := []*model.Release{}
	for _, rel := range r.byModule(moduleID) {
		if rel.IsLatest {
			out = append(out, rel)
		}
	}
	return out
}

// ============================================================================
// In-memory module and sync config stores
// ============================================================================

type memModuleRepo struct {
	modules       []*model.Module
	touched       map[string]int
	updateSlugErr error
}

func (r *memModuleRepo) GetByID(_ context.Context, id string) (*model.Module, error) {
	for _, m := range r.modules {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *memModuleRepo) ListPublishedOpenSource(_ context.Context) ([]*model.Module, error) {
	out := []*model.Module{}
	for _, m := range r.modules {
		if m.IsPublished && m.IsOpenSource && m.SourceURL != nil && *m.SourceURL != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memModuleRepo) ListMissingSlug(_ context.Context) ([]*model.Module, error) {
	out := []*model.Module{}
	for _, m := range r.modules {
		if !m.HasSlug() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memModuleRepo) ListSlugs(_ context.Context) ([]string, error) {
	out := []string{}
	for _, m := range r.modules {
		if m.HasSlug() {
			out = append(out, *m.Slug)
		}
	}
	return out, nil
}

func (r *memModuleRepo) UpdateSlug(_ context.Context, id, slug string) error {
	if r.updateSlugErr != nil {
		return r.updateSlugErr
	}
	for _, m := range r.modules {
		if m.ID == id {
			s := slug
			m.Slug = &s
		}
	}
	return nil
}

func (r *memModuleRepo) TouchLastUpdated(_ context.Context, id string) error {
	if r.touched == nil {
		r.touched = map[string]int{}
	}
	r.touched[id]++
	return nil
}

type memSyncConfigRepo struct {
	configs   []*model.ModuleSyncConfig
	synced    map[string]int
	successes map[string]int
	failures  map[string][]model.SyncError
	staleCut  time.Time
}

func newMemSyncConfigRepo(configs ...*model.ModuleSyncConfig) *memSyncConfigRepo {
	return &memSyncConfigRepo{
		configs:   configs,
		synced:    map[string]int{},
		successes: map[string]int{},
		failures:  map[string][]model.SyncError{},
	}
}

func (r *memSyncConfigRepo) Create(_ context.Context, cfg *model.ModuleSyncConfig) error {
	c := *cfg
	c.ID = "module_sync_config:" + cfg.ModuleID
	cfg.ID = c.ID
	r.configs = append(r.configs, &c)
	return nil
}

func (r *memSyncConfigRepo) GetByModuleID(_ context.Context, moduleID string) (*model.ModuleSyncConfig, error) {
	for _, c := range r.configs {
		if c.ModuleID == moduleID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSyncConfigRepo) ListEnabled(_ context.Context, limit int) ([]*model.ModuleSyncConfig, error) {
	out := []*model.ModuleSyncConfig{}
	for _, c := range r.configs {
		if c.Enabled {
			cp := *c
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSyncConfigRepo) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*model.ModuleSyncConfig, error) {
	r.staleCut = cutoff
	out := []*model.ModuleSyncConfig{}
	for _, c := range r.configs {
		if c.Enabled && (c.LastSyncAt == nil || c.LastSyncAt.Before(cutoff)) {
			cp := *c
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSyncConfigRepo) find(moduleID string) *model.ModuleSyncConfig {
	for _, c := range r.configs {
		if c.ModuleID == moduleID {
			return c
		}
	}
	return nil
}

func (r *memSyncConfigRepo) Update(_ context.Context, cfg *model.ModuleSyncConfig) error {
	if c := r.find(cfg.ModuleID); c != nil {
		c.GitHubRepo = cfg.GitHubRepo
		c.Enabled = cfg.Enabled
	}
	return nil
}

func (r *memSyncConfigRepo) SetEnabled(_ context.Context, moduleID string, enabled bool) error {
	if c := r.find(moduleID); c != nil {
		c.Enabled = enabled
	}
	return nil
}

func (r *memSyncConfigRepo) MarkSynced(_ context.Context, moduleID string, lastReleaseID *int64) error {
	r.synced[moduleID]++
	if c := r.find(moduleID); c != nil && lastReleaseID != nil {
		id := *lastReleaseID
		c.LastReleaseID = &id
	}
	return nil
}

func (r *memSyncConfigRepo) RecordSyncSuccess(_ context.Context, moduleID string) error {
	r.successes[moduleID]++
	if c := r.find(moduleID); c != nil {
		c.SyncErrors = []model.SyncError{}
	}
	return nil
}

func (r *memSyncConfigRepo) RecordSyncFailure(_ context.Context, moduleID string, syncErrors []model.SyncError) error {
	r.failures[moduleID] = syncErrors
	if c := r.find(moduleID); c != nil {
		c.SyncErrors = syncErrors
	}
	return nil
}

// ============================================================================
// GitHub, audit, syncer and pacer doubles
// ============================================================================

type fakeLister struct {
	releases map[string][]github.Release
	err      error
	calls    int
	tokens   []string
}

func (f *fakeLister) ListReleases(_ context.Context, owner, repo string, _ int, token string) ([]github.Release, error) {
	f.calls++
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.releases[owner+"/"+repo], nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry model.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type mockSyncer struct {
	syncFunc func(ctx context.Context, moduleID, githubRepo, token string) model.SyncResult
	calls    []string
}

func (m *mockSyncer) SyncModuleReleases(ctx context.Context, moduleID, githubRepo, token string) model.SyncResult {
	m.calls = append(m.calls, moduleID)
	if m.syncFunc != nil {
		return m.syncFunc(ctx, moduleID, githubRepo, token)
	}
	return model.SyncResult{Success: true, Errors: []string{}}
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return p.err
}

// newTestRun claims a pending job in repo for direct handler tests
func newTestRun(repo *memJobRepo, jobType model.JobType, startedBy string) *JobRun {
	job := repo.put(&model.Job{Type: jobType, Name: "test", Status: model.JobStatusPending, StartedBy: startedBy})
	claimed, _ := repo.ClaimPending(context.Background(), job.ID, "run-1", model.NewJobLogEntry(model.LogLevelInfo, "start"))
	return &JobRun{Job: claimed, repo: repo, log: discardEntry()}
}

func ghRelease(id int64, tag string, assets ...github.Asset) github.Release {
	return github.Release{ID: id, TagName: tag, Name: tag, Assets: assets}
}

func ghAsset(name string, size int64) github.Asset {
	return github.Asset{Name: name, DownloadURL: "https://github.com/dl/" + name, Size: size, ContentType: "application/zip"}
}

func discardEntry() *logrus.Entry {
	return logrus.NewEntry(logger.Discard())
}
