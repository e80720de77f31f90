// Package service holds the job executor, the job handlers and the GitHub
// release sync engine.
//
// Services declare the narrow repository interfaces they need, so tests run
// against in-memory fakes. Errors are package-level sentinels wrapped with
// context:
//
//	exec := NewExecutor(ExecutorConfig{
//	    JobRepo:  jobRepo,
//	    Handlers: map[model.JobType]JobHandler{model.JobTypeCleanup: cleanup},
//	})
//	if err := exec.ExecuteJob(ctx, jobID); errors.Is(err, ErrJobNotPending) {
//	    // already claimed
//	}
package service
