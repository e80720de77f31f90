// Package jobs runs the background loops of the module hub.
//
// ReleaseScheduler owns two independent tickers:
//
//   - Sweep (JOB_CHECK_INTERVAL_MS): every pending job is handed to the
//     executor on its own goroutine. Failures and panics are logged and never
//     stop the loop.
//   - Auto-enqueue (DEFAULT_SYNC_INTERVAL_HOURS): when RELEASE_SCHEDULE_ENABLED
//     is set, inserts an "Automatic GitHub Scrape" job and an automatic config
//     sync job, unless such a scrape is still pending.
//
// Both loops fire once on Start. Start and Stop are idempotent:
//
//	sched := jobs.NewReleaseScheduler(jobs.ReleaseSchedulerConfig{
//	    Queue:    jobRepo,
//	    Enqueuer: jobService,
//	    Executor: executor,
//	    Enabled:  cfg.Scheduler.Enabled,
//	})
//	sched.Start()
//	defer sched.Stop()
package jobs
