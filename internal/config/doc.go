// Package config loads process configuration from environment variables.
//
// An optional .env file is read first with godotenv; variables that are
// already set in the environment are never overridden:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Scheduler settings:
//
//	RELEASE_SCHEDULE_ENABLED     false   auto-enqueue recurring scrape jobs
//	DEFAULT_SYNC_INTERVAL_HOURS  6       interval between auto-enqueue attempts
//	JOB_CHECK_INTERVAL_MS        60000   interval between pending job sweeps
//
// Validate reports every problem at once, joined with errors.Join.
package config
