package service

import (
	"context"
	"fmt"

	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/model"
)

// ConfigSyncHandler reconciles module sync configs with the published modules
// whose source URL points at GitHub. Configs are created, updated or disabled,
// never deleted.
type ConfigSyncHandler struct {
	modules     ModuleRepository
	syncConfigs SyncConfigRepository
	audit       AuditSink
}

// NewConfigSyncHandler creates a new sync_github_configs handler
func NewConfigSyncHandler(modules ModuleRepository, syncConfigs SyncConfigRepository, audit AuditSink) *ConfigSyncHandler {
	if audit == nil {
		audit = discardAudit{}
	}
	return &ConfigSyncHandler{modules: modules, syncConfigs: syncConfigs, audit: audit}
}

type configSyncCounts struct {
	created, updated, disabled, failed int
}

// Handle implements JobHandler
func (h *ConfigSyncHandler) Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
	if _, ok := params.(model.ConfigSyncParams); !ok {
		return model.JobResult{}, fmt.Errorf("%w: expected config sync parameters", ErrInvalidJobParams)
	}

	modules, err := h.modules.ListPublishedOpenSource(ctx)
	if err != nil {
		return model.JobResult{}, err
	}

	result := model.JobResult{Errors: []string{}}
	var counts configSyncCounts
	fail := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		counts.failed++
		result.Errors = append(result.Errors, msg)
		run.Logf(ctx, model.LogLevelError, "%s", msg)
	}

	qualifying := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		if m.SourceURL == nil {
			continue
		}
		repo, ok := github.ParseRepoURL(*m.SourceURL)
		if !ok {
			continue
		}
		qualifying[m.ID] = struct{}{}
		result.ProcessedCount++

		// Re-read so a concurrent toggle from the approval flow is not clobbered
		existing, err := h.syncConfigs.GetByModuleID(ctx, m.ID)
		if err != nil {
			fail("%s: failed to load sync config: %v", m.ID, err)
			continue
		}

		if existing == nil {
			cfg := &model.ModuleSyncConfig{ModuleID: m.ID, GitHubRepo: repo, Enabled: true}
			if err := h.syncConfigs.Create(ctx, cfg); err != nil {
				fail("%s: failed to create sync config: %v", m.ID, err)
				continue
			}
			counts.created++
			run.Logf(ctx, model.LogLevelInfo, "Created sync config for %s (%s)", m.Name, repo)
			continue
		}

		if existing.GitHubRepo == repo && existing.Enabled {
			continue
		}
		oldRepo := existing.GitHubRepo
		existing.GitHubRepo = repo
		existing.Enabled = true
		if err := h.syncConfigs.Update(ctx, existing); err != nil {
			fail("%s: failed to update sync config: %v", m.ID, err)
			continue
		}
		counts.updated++
		run.Logf(ctx, model.LogLevelInfo, "Updated sync config for %s (%s -> %s)", m.Name, oldRepo, repo)
	}

	enabled, err := h.syncConfigs.ListEnabled(ctx, 0)
	if err != nil {
		fail("failed to list enabled sync configs: %v", err)
	} else {
		for _, cfg := range enabled {
			if _, ok := qualifying[cfg.ModuleID]; ok {
				continue
			}
			if err := h.syncConfigs.SetEnabled(ctx, cfg.ModuleID, false); err != nil {
				fail("%s: failed to disable sync config: %v", cfg.ModuleID, err)
				continue
			}
			counts.disabled++
			run.Logf(ctx, model.LogLevelInfo, "Disabled sync config for %s (%s)", cfg.ModuleID, cfg.GitHubRepo)
		}
	}

	result.ErrorCount = counts.failed
	result.Success = counts.failed == 0
	result.Summary = fmt.Sprintf("Sync configs: %d created, %d updated, %d disabled, %d errors",
		counts.created, counts.updated, counts.disabled, counts.failed)

	h.audit.Record(ctx, model.AuditEntry{
		ActorID:    run.Actor(),
		Action:     model.AuditActionConfigsSynced,
		Details:    result.Summary,
		TargetType: model.AuditTargetSystem,
		TargetID:   run.Job.ID,
		NewValues: map[string]interface{}{
			"created":  counts.created,
			"updated":  counts.updated,
			"disabled": counts.disabled,
			"errors":   counts.failed,
		},
	})
	return result, nil
}
