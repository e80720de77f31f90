package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/modhub/internal/model"
)

// Scrape defaults
const (
	DefaultStaleAfter = 24 * time.Hour
	DefaultMaxModules = 1000
)

// ScrapeHandlerConfig holds dependencies for the scrape_releases handler
type ScrapeHandlerConfig struct {
	SyncConfigs SyncConfigRepository
	Syncer      ReleaseSyncer
	Tokens      TokenSource
	Audit       AuditSink
	ModuleDelay time.Duration
	StaleAfter  time.Duration
	MaxModules  int

	// NewPacer defaults to NewFixedDelay(ModuleDelay)
	NewPacer func() Pacer
	Now      func() time.Time
}

// ScrapeHandler syncs GitHub releases for the modules selected by the job scope,
// one module at a time
type ScrapeHandler struct {
	syncConfigs SyncConfigRepository
	syncer      ReleaseSyncer
	tokens      TokenSource
	audit       AuditSink
	staleAfter  time.Duration
	maxModules  int
	newPacer    func() Pacer
	now         func() time.Time
}

// NewScrapeHandler creates a new scrape_releases handler
func NewScrapeHandler(cfg ScrapeHandlerConfig) *ScrapeHandler {
	h := &ScrapeHandler{
		syncConfigs: cfg.SyncConfigs,
		syncer:      cfg.Syncer,
		tokens:      cfg.Tokens,
		audit:       cfg.Audit,
		staleAfter:  cfg.StaleAfter,
		maxModules:  cfg.MaxModules,
		newPacer:    cfg.NewPacer,
		now:         cfg.Now,
	}
	if h.staleAfter <= 0 {
		h.staleAfter = DefaultStaleAfter
	}
	if h.maxModules <= 0 {
		h.maxModules = DefaultMaxModules
	}
	if h.newPacer == nil {
		delay := cfg.ModuleDelay
		h.newPacer = func() Pacer { return NewFixedDelay(delay) }
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.tokens == nil {
		h.tokens = StaticToken("")
	}
	if h.audit == nil {
		h.audit = discardAudit{}
	}
	return h
}

// Handle implements JobHandler
func (h *ScrapeHandler) Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
	p, ok := params.(model.ScrapeParams)
	if !ok {
		return model.JobResult{}, fmt.Errorf("%w: expected scrape parameters", ErrInvalidJobParams)
	}

	configs, err := h.selectConfigs(ctx, p)
	if err != nil {
		return model.JobResult{}, err
	}

	total := len(configs)
	run.Logf(ctx, model.LogLevelInfo, "Scraping %d modules (scope: %s)", total, p.Scope)

	token := h.tokens.Token(ctx, run.Actor())
	pacer := h.newPacer()
	result := model.JobResult{Errors: []string{}}
	newReleases := 0

	for i, cfg := range configs {
		if err := pacer.Wait(ctx); err != nil {
			return model.JobResult{}, fmt.Errorf("scrape interrupted after %d of %d modules: %w", i, total, err)
		}
		run.Progress(ctx, i*100/total)

		sync := h.syncer.SyncModuleReleases(ctx, cfg.ModuleID, cfg.GitHubRepo, token)
		result.ProcessedCount++

		if sync.Success {
			newReleases += sync.NewReleases
			run.Logf(ctx, model.LogLevelInfo, "%s: %d new releases", cfg.GitHubRepo, sync.NewReleases)
			if err := h.syncConfigs.RecordSyncSuccess(ctx, cfg.ModuleID); err != nil {
				run.Logf(ctx, model.LogLevelWarn, "%s: failed to record sync: %v", cfg.GitHubRepo, err)
			}
			if sync.NewReleases > 0 {
				h.audit.Record(ctx, model.AuditEntry{
					ActorID:    run.Actor(),
					Action:     model.AuditActionReleasesSynced,
					Details:    fmt.Sprintf("Synced %d new releases from %s", sync.NewReleases, cfg.GitHubRepo),
					TargetType: model.AuditTargetModule,
					TargetID:   cfg.ModuleID,
					NewValues:  map[string]interface{}{"new_releases": sync.NewReleases},
				})
			}
			continue
		}

		// A partly failed sync may still have stored releases
		newReleases += sync.NewReleases
		msg := strings.Join(sync.Errors, "; ")
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", cfg.GitHubRepo, msg))
		run.Logf(ctx, model.LogLevelError, "%s: sync failed: %s", cfg.GitHubRepo, msg)

		record := []model.SyncError{{Error: msg, Timestamp: h.now().UTC(), RetryCount: 0}}
		if err := h.syncConfigs.RecordSyncFailure(ctx, cfg.ModuleID, record); err != nil {
			run.Logf(ctx, model.LogLevelWarn, "%s: failed to record sync error: %v", cfg.GitHubRepo, err)
		}
		h.audit.Record(ctx, model.AuditEntry{
			ActorID:    run.Actor(),
			Action:     model.AuditActionReleaseSyncFailed,
			Details:    fmt.Sprintf("Release sync from %s failed: %s", cfg.GitHubRepo, msg),
			TargetType: model.AuditTargetModule,
			TargetID:   cfg.ModuleID,
			NewValues:  map[string]interface{}{"errors": sync.Errors},
		})
	}

	result.Success = result.ErrorCount == 0
	result.Summary = fmt.Sprintf("Processed %d modules: %d new releases, %d errors",
		result.ProcessedCount, newReleases, result.ErrorCount)
	return result, nil
}

func (h *ScrapeHandler) selectConfigs(ctx context.Context, p model.ScrapeParams) ([]*model.ModuleSyncConfig, error) {
	switch p.Scope {
	case model.ScrapeScopeOutdated:
		return h.syncConfigs.ListStale(ctx, h.now().Add(-h.staleAfter), h.maxModules)
	case model.ScrapeScopeSingle:
		cfg, err := h.syncConfigs.GetByModuleID(ctx, p.ModuleID)
		if err != nil {
			return nil, err
		}
		if cfg == nil || !cfg.Enabled {
			return nil, fmt.Errorf("%w: %s", ErrSyncConfigNotFound, p.ModuleID)
		}
		return []*model.ModuleSyncConfig{cfg}, nil
	default:
		return h.syncConfigs.ListEnabled(ctx, h.maxModules)
	}
}
