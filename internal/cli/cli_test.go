package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/service"
)

type mockJobs struct {
	enqueued  []service.EnqueueRequest
	executed  []string
	cancelErr error
	execErr   error
	stats     model.JobStats
	listed    *model.JobStatus
}

func (m *mockJobs) Enqueue(_ context.Context, req service.EnqueueRequest) (*model.Job, error) {
	m.enqueued = append(m.enqueued, req)
	return &model.Job{ID: "job:1", Type: req.Type, Name: req.Name, Status: model.JobStatusPending}, nil
}

func (m *mockJobs) ExecuteJob(_ context.Context, id string) error {
	m.executed = append(m.executed, id)
	return m.execErr
}

func (m *mockJobs) Cancel(_ context.Context, id string) (*model.Job, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return &model.Job{ID: id, Status: model.JobStatusCancelled}, nil
}

func (m *mockJobs) GetJob(_ context.Context, id string) (*model.Job, error) {
	return &model.Job{
		ID:      id,
		Type:    model.JobTypeCleanup,
		Status:  model.JobStatusFailed,
		Results: &model.JobResult{Summary: "Job failed: boom", Errors: []string{"boom"}},
	}, nil
}

func (m *mockJobs) ListJobs(_ context.Context, status *model.JobStatus, _, _ int) ([]*model.Job, error) {
	m.listed = status
	return []*model.Job{{ID: "job:1", Type: model.JobTypeCleanup, Status: model.JobStatusPending, Name: "c"}}, nil
}

func (m *mockJobs) GetJobStats(context.Context) (model.JobStats, error) {
	return m.stats, nil
}

type harness struct {
	jobs     *mockJobs
	runOnce  int
	tokens   map[string]string
	closed   int
	connects int
}

func (h *harness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(func(context.Context, *RootOptions) (*Env, error) {
		h.connects++
		return &Env{
			Jobs: h.jobs,
			RunOnce: func(context.Context) error {
				h.runOnce++
				return nil
			},
			SetToken: func(_ context.Context, userID, token string) error {
				h.tokens[userID] = token
				return nil
			},
			Close: func() error {
				h.closed++
				return nil
			},
		}, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newHarness() *harness {
	return &harness{jobs: &mockJobs{}, tokens: map[string]string{}}
}

func TestEnqueueScrape(t *testing.T) {
	h := newHarness()

	out, err := h.execute(t, "enqueue", "scrape", "--scope", "single", "--module", "module:7", "--actor", "user:3")

	require.NoError(t, err)
	assert.Contains(t, out, "queued scrape_releases job job:1")
	require.Len(t, h.jobs.enqueued, 1)
	req := h.jobs.enqueued[0]
	assert.Equal(t, model.JobTypeScrapeReleases, req.Type)
	assert.Equal(t, "user:3", req.StartedBy)
	assert.Equal(t, model.ScrapeParams{Scope: model.ScrapeScopeSingle, ModuleID: "module:7"}, req.Params)
	assert.Equal(t, 1, h.closed)
}

func TestEnqueueCleanupDefaults(t *testing.T) {
	h := newHarness()

	_, err := h.execute(t, "enqueue", "cleanup", "--name", "nightly")

	require.NoError(t, err)
	req := h.jobs.enqueued[0]
	assert.Equal(t, "nightly", req.Name)
	assert.Equal(t, model.SystemActor, req.StartedBy)
	assert.Equal(t, model.CleanupParams{Target: model.CleanupTargetFailedJobs, Days: 30}, req.Params)
}

func TestRunPrintsOutcomeAndReturnsError(t *testing.T) {
	h := newHarness()
	h.jobs.execErr = errors.New("job job:5 failed: boom")

	out, err := h.execute(t, "run", "job:5")

	assert.Error(t, err)
	assert.Equal(t, []string{"job:5"}, h.jobs.executed)
	assert.Contains(t, out, "Job failed: boom")
}

func TestCancelError(t *testing.T) {
	h := newHarness()
	h.jobs.cancelErr = service.ErrJobNotCancellable

	_, err := h.execute(t, "cancel", "job:1")
	assert.ErrorIs(t, err, service.ErrJobNotCancellable)
}

func TestStatsJSON(t *testing.T) {
	h := newHarness()
	h.jobs.stats = model.JobStats{Total: 3, Pending: 1, Failed: 2}

	out, err := h.execute(t, "stats", "--format", "json")

	require.NoError(t, err)
	var got model.JobStats
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, h.jobs.stats, got)
}

func TestListWithStatus(t *testing.T) {
	h := newHarness()

	out, err := h.execute(t, "list", "--status", "failed")

	require.NoError(t, err)
	require.NotNil(t, h.jobs.listed)
	assert.Equal(t, model.JobStatusFailed, *h.jobs.listed)
	assert.Contains(t, out, "job:1")
}

func TestOnceAndToken(t *testing.T) {
	h := newHarness()

	_, err := h.execute(t, "once")
	require.NoError(t, err)
	assert.Equal(t, 1, h.runOnce)

	_, err = h.execute(t, "token", "set", "user:9", "ghp_x")
	require.NoError(t, err)
	assert.Equal(t, "ghp_x", h.tokens["user:9"])
}

func TestInvalidFormatRejectedBeforeConnect(t *testing.T) {
	h := newHarness()

	_, err := h.execute(t, "stats", "--format", "yaml")

	assert.Error(t, err)
	assert.Equal(t, 0, h.connects)
}
