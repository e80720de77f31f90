package model

import "time"

// MaxSyncErrors bounds the sync error history kept on a config
const MaxSyncErrors = 5

// ModuleSyncConfig describes whether and from where a module's releases are pulled.
// Configs are disabled rather than deleted when a module stops qualifying.
type ModuleSyncConfig struct {
	ID            string      `json:"id"`
	ModuleID      string      `json:"module_id"`
	GitHubRepo    string      `json:"github_repo"`
	Enabled       bool        `json:"enabled"`
	LastSyncAt    *time.Time  `json:"last_sync_at,omitempty"`
	LastReleaseID *int64      `json:"last_release_id,omitempty"`
	SyncErrors    []SyncError `json:"sync_errors"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// SyncError records one failed sync attempt
type SyncError struct {
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// BoundSyncErrors keeps at most MaxSyncErrors entries, dropping the oldest
func BoundSyncErrors(errs []SyncError) []SyncError {
	if len(errs) <= MaxSyncErrors {
		return errs
	}
	return errs[len(errs)-MaxSyncErrors:]
}
