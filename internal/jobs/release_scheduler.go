package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/service"
)

// Scheduler defaults
const (
	DefaultCheckInterval = time.Minute
	DefaultSyncInterval  = 6 * time.Hour
	DefaultSweepLimit    = 100
)

// JobQueue is the read side of the job store used by the scheduler
type JobQueue interface {
	ListPending(ctx context.Context, limit int) ([]*model.Job, error)
	ExistsPending(ctx context.Context, jobType model.JobType, name string) (bool, error)
}

// JobEnqueuer creates jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req service.EnqueueRequest) (*model.Job, error)
}

// ReleaseSchedulerConfig holds dependencies for the release scheduler
type ReleaseSchedulerConfig struct {
	Queue    JobQueue
	Enqueuer JobEnqueuer
	Executor service.JobExecutor

	// Enabled gates the auto-enqueue loop; the sweep always runs
	Enabled       bool
	CheckInterval time.Duration
	SyncInterval  time.Duration
	SweepLimit    int
	Logger        logrus.FieldLogger
}

// ReleaseScheduler runs two independent loops: a sweep that executes pending
// jobs, and an auto-enqueue that schedules the recurring GitHub scrape and
// config sync. Each loop fires once on Start and then on its own interval.
type ReleaseScheduler struct {
	queue         JobQueue
	enqueuer      JobEnqueuer
	executor      service.JobExecutor
	enabled       bool
	checkInterval time.Duration
	syncInterval  time.Duration
	sweepLimit    int
	log           logrus.FieldLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	loops   sync.WaitGroup

	// enqueueMu serializes the exists-then-insert of automatic jobs
	enqueueMu sync.Mutex

	flightMu sync.Mutex
	inFlight map[string]struct{}
	jobs     sync.WaitGroup
}

// NewReleaseScheduler creates a new release scheduler
func NewReleaseScheduler(cfg ReleaseSchedulerConfig) *ReleaseScheduler {
	s := &ReleaseScheduler{
		queue:         cfg.Queue,
		enqueuer:      cfg.Enqueuer,
		executor:      cfg.Executor,
		enabled:       cfg.Enabled,
		checkInterval: cfg.CheckInterval,
		syncInterval:  cfg.SyncInterval,
		sweepLimit:    cfg.SweepLimit,
		log:           cfg.Logger,
		inFlight:      make(map[string]struct{}),
	}
	if s.checkInterval <= 0 {
		s.checkInterval = DefaultCheckInterval
	}
	if s.syncInterval <= 0 {
		s.syncInterval = DefaultSyncInterval
	}
	if s.sweepLimit <= 0 {
		s.sweepLimit = DefaultSweepLimit
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Start begins both loops. Calling Start on a running scheduler does nothing.
func (s *ReleaseScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.loops.Add(2)
	go s.loop(stopCh, s.checkInterval, s.sweep)
	go s.loop(stopCh, s.syncInterval, s.autoEnqueue)

	s.log.WithFields(logrus.Fields{
		"check_interval": s.checkInterval.String(),
		"sync_interval":  s.syncInterval.String(),
		"auto_enqueue":   s.enabled,
	}).Info("release scheduler started")
}

// Stop halts both loops and waits for them to exit. Jobs already dispatched
// keep running; use Drain to wait for them. Stop is safe to call repeatedly.
func (s *ReleaseScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.loops.Wait()
	s.log.Info("release scheduler stopped")
}

// Drain waits until every dispatched job has returned or ctx is done
func (s *ReleaseScheduler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the loops are running
func (s *ReleaseScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce performs one sweep and one auto-enqueue attempt and waits for the
// jobs it dispatched. It does not disturb the loop timers.
func (s *ReleaseScheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if _, err := s.EnqueueAutomatic(ctx); err != nil {
		errs = append(errs, err)
	}

	dispatched, err := s.Sweep(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, done := range dispatched {
		<-done
	}
	return errors.Join(errs...)
}

func (s *ReleaseScheduler) loop(stopCh <-chan struct{}, interval time.Duration, tick func()) {
	defer s.loops.Done()

	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-stopCh:
			return
		}
	}
}

func (s *ReleaseScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.log.WithError(err).Error("job sweep failed")
	}
}

func (s *ReleaseScheduler) autoEnqueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.EnqueueAutomatic(ctx); err != nil {
		s.log.WithError(err).Error("automatic job enqueue failed")
	}
}

// Sweep dispatches every pending job to the executor without waiting for it.
// The returned channels close as each dispatched job returns. Jobs already in
// flight from an earlier sweep are skipped.
func (s *ReleaseScheduler) Sweep(ctx context.Context) ([]<-chan struct{}, error) {
	pending, err := s.queue.ListPending(ctx, s.sweepLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	dispatched := make([]<-chan struct{}, 0, len(pending))
	for _, job := range pending {
		if done, ok := s.dispatch(job); ok {
			dispatched = append(dispatched, done)
		}
	}
	if len(dispatched) > 0 {
		s.log.WithField("count", len(dispatched)).Debug("dispatched pending jobs")
	}
	return dispatched, nil
}

// dispatch runs job on its own goroutine. Errors and panics are logged so a
// failing job never stops the sweep.
func (s *ReleaseScheduler) dispatch(job *model.Job) (<-chan struct{}, bool) {
	s.flightMu.Lock()
	if _, busy := s.inFlight[job.ID]; busy {
		s.flightMu.Unlock()
		return nil, false
	}
	s.inFlight[job.ID] = struct{}{}
	s.flightMu.Unlock()

	done := make(chan struct{})
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer close(done)
		defer func() {
			s.flightMu.Lock()
			delete(s.inFlight, job.ID)
			s.flightMu.Unlock()
		}()

		jobLog := s.log.WithFields(logrus.Fields{"job_id": job.ID, "job_type": job.Type})
		defer func() {
			if r := recover(); r != nil {
				jobLog.WithField("panic", r).Error("job execution panicked")
			}
		}()

		// Not tied to the sweep context; a job may outlive the sweep
		if err := s.executor.ExecuteJob(context.Background(), job.ID); err != nil {
			if service.IsPreconditionError(err) {
				jobLog.WithError(err).Debug("job skipped")
				return
			}
			jobLog.WithError(err).Error("job execution failed")
		}
	}()
	return done, true
}

// EnqueueAutomatic inserts the recurring scrape and config sync jobs unless
// auto-enqueue is disabled or an automatic scrape is already pending. It
// reports whether jobs were inserted.
func (s *ReleaseScheduler) EnqueueAutomatic(ctx context.Context) (bool, error) {
	if !s.enabled {
		return false, nil
	}

	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	exists, err := s.queue.ExistsPending(ctx, model.JobTypeScrapeReleases, model.AutoScrapeJobName)
	if err != nil {
		return false, fmt.Errorf("failed to check for pending automatic scrape: %w", err)
	}
	if exists {
		s.log.Debug("automatic scrape already pending; skipping")
		return false, nil
	}

	scrape, err := s.enqueuer.Enqueue(ctx, service.EnqueueRequest{
		Type:        model.JobTypeScrapeReleases,
		Name:        model.AutoScrapeJobName,
		Description: "Scheduled sync of GitHub releases for all modules",
		Params:      model.ScrapeParams{Scope: model.ScrapeScopeAll, Automatic: true},
		StartedBy:   model.SystemActor,
	})
	if err != nil {
		return false, fmt.Errorf("failed to enqueue automatic scrape: %w", err)
	}

	configSync, err := s.enqueuer.Enqueue(ctx, service.EnqueueRequest{
		Type:        model.JobTypeSyncGitHubConfigs,
		Name:        model.AutoConfigSyncJobName,
		Description: "Scheduled reconciliation of GitHub sync configs",
		Params:      model.ConfigSyncParams{Automatic: true},
		StartedBy:   model.SystemActor,
	})
	if err != nil {
		return true, fmt.Errorf("failed to enqueue automatic config sync: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"scrape_job_id":      scrape.ID,
		"config_sync_job_id": configSync.ID,
	}).Info("automatic jobs enqueued")
	return true, nil
}
