package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// SyncConfigRepository handles module_sync_config data access
type SyncConfigRepository struct {
	db database.Database
}

// NewSyncConfigRepository creates a new sync config repository
func NewSyncConfigRepository(db database.Database) *SyncConfigRepository {
	return &SyncConfigRepository{db: db}
}

// Create inserts a sync config for a module
func (r *SyncConfigRepository) Create(ctx context.Context, cfg *model.ModuleSyncConfig) error {
	query := `
		CREATE module_sync_config CONTENT {
			module_id: type::record($module_id),
			github_repo: $github_repo,
			enabled: $enabled,
			sync_errors: [],
			created_at: time::now(),
			updated_at: time::now()
		}
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"module_id":   cfg.ModuleID,
		"github_repo": cfg.GitHubRepo,
		"enabled":     cfg.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create sync config: %w", err)
	}

	row, ok := firstRow(result)
	if !ok {
		return fmt.Errorf("failed to create sync config: %w", errUnexpectedFormat)
	}
	created := parseSyncConfig(row)
	cfg.ID = created.ID
	cfg.SyncErrors = created.SyncErrors
	cfg.CreatedAt = created.CreatedAt
	cfg.UpdatedAt = created.UpdatedAt
	return nil
}

// GetByModuleID returns the config of a module, or nil when it has none
func (r *SyncConfigRepository) GetByModuleID(ctx context.Context, moduleID string) (*model.ModuleSyncConfig, error) {
	query := `SELECT * FROM module_sync_config WHERE module_id = type::record($module_id) LIMIT 1`

	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"module_id": moduleID})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync config: %w", err)
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedFormat
	}
	return parseSyncConfig(data), nil
}

// ListEnabled returns enabled configs. A limit of zero or less returns all of them.
func (r *SyncConfigRepository) ListEnabled(ctx context.Context, limit int) ([]*model.ModuleSyncConfig, error) {
	query := `SELECT * FROM module_sync_config WHERE enabled = true ORDER BY created_at ASC`
	vars := map[string]interface{}{}
	if limit > 0 {
		query += ` LIMIT $limit`
		vars["limit"] = limit
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sync configs: %w", err)
	}
	return parseSyncConfigs(result), nil
}

// ListStale returns enabled configs never synced or last synced before cutoff
func (r *SyncConfigRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*model.ModuleSyncConfig, error) {
	query := `
		SELECT * FROM module_sync_config
		WHERE enabled = true
		AND (last_sync_at = NONE OR last_sync_at = NULL OR last_sync_at < <datetime>$cutoff)
		ORDER BY created_at ASC
	`
	vars := map[string]interface{}{"cutoff": formatTime(cutoff)}
	if limit > 0 {
		query += ` LIMIT $limit`
		vars["limit"] = limit
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sync configs: %w", err)
	}
	return parseSyncConfigs(result), nil
}

// Update writes the repo and enabled flag of an existing config
func (r *SyncConfigRepository) Update(ctx context.Context, cfg *model.ModuleSyncConfig) error {
	query := `
		UPDATE module_sync_config SET
			github_repo = $github_repo,
			enabled = $enabled,
			updated_at = time::now()
		WHERE module_id = type::record($module_id)
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"module_id":   cfg.ModuleID,
		"github_repo": cfg.GitHubRepo,
		"enabled":     cfg.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to update sync config: %w", err)
	}
	return nil
}

// SetEnabled toggles a config without touching its repo
func (r *SyncConfigRepository) SetEnabled(ctx context.Context, moduleID string, enabled bool) error {
	query := `
		UPDATE module_sync_config SET enabled = $enabled, updated_at = time::now()
		WHERE module_id = type::record($module_id)
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"module_id": moduleID,
		"enabled":   enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to set sync config enabled: %w", err)
	}
	return nil
}

// MarkSynced stamps last_sync_at and, when lastReleaseID is set, last_release_id
func (r *SyncConfigRepository) MarkSynced(ctx context.Context, moduleID string, lastReleaseID *int64) error {
	query := `UPDATE module_sync_config SET last_sync_at = time::now(), updated_at = time::now()`
	vars := map[string]interface{}{"module_id": moduleID}
	if lastReleaseID != nil {
		query += `, last_release_id = $last_release_id`
		vars["last_release_id"] = *lastReleaseID
	}
	query += ` WHERE module_id = type::record($module_id)`

	if err := r.db.Execute(ctx, query, vars); err != nil {
		return fmt.Errorf("failed to mark sync config synced: %w", err)
	}
	return nil
}

// RecordSyncSuccess clears the error history after a clean sync
func (r *SyncConfigRepository) RecordSyncSuccess(ctx context.Context, moduleID string) error {
	query := `
		UPDATE module_sync_config SET
			sync_errors = [],
			last_sync_at = time::now(),
			updated_at = time::now()
		WHERE module_id = type::record($module_id)
	`
	if err := r.db.Execute(ctx, query, map[string]interface{}{"module_id": moduleID}); err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}
	return nil
}

// RecordSyncFailure replaces the error history, keeping at most model.MaxSyncErrors entries
func (r *SyncConfigRepository) RecordSyncFailure(ctx context.Context, moduleID string, syncErrors []model.SyncError) error {
	docs := make([]interface{}, 0, len(syncErrors))
	for _, e := range model.BoundSyncErrors(syncErrors) {
		docs = append(docs, map[string]interface{}{
			"error":       e.Error,
			"timestamp":   formatTime(e.Timestamp),
			"retry_count": e.RetryCount,
		})
	}

	query := `
		UPDATE module_sync_config SET
			sync_errors = $sync_errors,
			last_sync_at = time::now(),
			updated_at = time::now()
		WHERE module_id = type::record($module_id)
	`
	err := r.db.Execute(ctx, query, map[string]interface{}{
		"module_id":   moduleID,
		"sync_errors": docs,
	})
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

func parseSyncConfig(data map[string]interface{}) *model.ModuleSyncConfig {
	cfg := &model.ModuleSyncConfig{
		ID:            recordID(data["id"]),
		ModuleID:      recordID(data["module_id"]),
		GitHubRepo:    getString(data, "github_repo"),
		Enabled:       getBool(data, "enabled"),
		LastSyncAt:    getTime(data, "last_sync_at"),
		LastReleaseID: getInt64Ptr(data, "last_release_id"),
		SyncErrors:    make([]model.SyncError, 0),
	}

	if raw, ok := data["sync_errors"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			se := model.SyncError{
				Error:      getString(m, "error"),
				RetryCount: getInt(m, "retry_count"),
			}
			if t := getTime(m, "timestamp"); t != nil {
				se.Timestamp = *t
			}
			cfg.SyncErrors = append(cfg.SyncErrors, se)
		}
	}
	if t := getTime(data, "created_at"); t != nil {
		cfg.CreatedAt = *t
	}
	if t := getTime(data, "updated_at"); t != nil {
		cfg.UpdatedAt = *t
	}
	return cfg
}

func parseSyncConfigs(result []interface{}) []*model.ModuleSyncConfig {
	rows := allRows(result)
	configs := make([]*model.ModuleSyncConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, parseSyncConfig(row))
	}
	return configs
}
