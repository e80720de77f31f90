package model

import "time"

// Audit actions written by the job subsystem
const (
	AuditActionReleasesSynced    = "github_releases_synced"
	AuditActionReleaseSyncFailed = "github_release_sync_failed"
	AuditActionConfigsSynced     = "github_configs_synced"
)

// Audit target types
const (
	AuditTargetModule = "module"
	AuditTargetSystem = "system"
)

// AuditEntry is one consequential action appended to the audit log
type AuditEntry struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actor_id"`
	Action     string                 `json:"action"`
	Details    string                 `json:"details"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	OldValues  map[string]interface{} `json:"old_values,omitempty"`
	NewValues  map[string]interface{} `json:"new_values,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
