package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/pkg/version"
)

// ReleaseLister fetches the most recent releases of a GitHub repository
type ReleaseLister interface {
	ListReleases(ctx context.Context, owner, repo string, perPage int, token string) ([]github.Release, error)
}

// ReleaseRepository is the release store used while syncing
type ReleaseRepository interface {
	Create(ctx context.Context, rel *model.Release) error
	ListGitHubReleaseIDs(ctx context.Context, moduleID string) ([]int64, error)
	ListVersions(ctx context.Context, moduleID string) ([]model.StoredVersion, error)
	ClearLatest(ctx context.Context, moduleID string) error
	SetLatest(ctx context.Context, moduleID, releaseID string) error
}

// ModuleRepository reads modules and writes the fields owned by jobs
type ModuleRepository interface {
	GetByID(ctx context.Context, id string) (*model.Module, error)
	ListPublishedOpenSource(ctx context.Context) ([]*model.Module, error)
	ListMissingSlug(ctx context.Context) ([]*model.Module, error)
	ListSlugs(ctx context.Context) ([]string, error)
	UpdateSlug(ctx context.Context, id, slug string) error
	TouchLastUpdated(ctx context.Context, id string) error
}

// SyncConfigRepository reads and writes module sync configs
type SyncConfigRepository interface {
	Create(ctx context.Context, cfg *model.ModuleSyncConfig) error
	GetByModuleID(ctx context.Context, moduleID string) (*model.ModuleSyncConfig, error)
	ListEnabled(ctx context.Context, limit int) ([]*model.ModuleSyncConfig, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*model.ModuleSyncConfig, error)
	Update(ctx context.Context, cfg *model.ModuleSyncConfig) error
	SetEnabled(ctx context.Context, moduleID string, enabled bool) error
	MarkSynced(ctx context.Context, moduleID string, lastReleaseID *int64) error
	RecordSyncSuccess(ctx context.Context, moduleID string) error
	RecordSyncFailure(ctx context.Context, moduleID string, syncErrors []model.SyncError) error
}

// ReleaseSyncer reconciles one module's releases against GitHub
type ReleaseSyncer interface {
	SyncModuleReleases(ctx context.Context, moduleID, githubRepo, token string) model.SyncResult
}

// ReleaseSyncServiceConfig holds dependencies for the release sync service
type ReleaseSyncServiceConfig struct {
	GitHub      ReleaseLister
	Releases    ReleaseRepository
	Modules     ModuleRepository
	SyncConfigs SyncConfigRepository
	PerPage     int
	Logger      logrus.FieldLogger
}

// ReleaseSyncService imports new GitHub releases for a module and keeps
// exactly one release flagged latest
type ReleaseSyncService struct {
	github      ReleaseLister
	releases    ReleaseRepository
	modules     ModuleRepository
	syncConfigs SyncConfigRepository
	perPage     int
	log         logrus.FieldLogger
}

// NewReleaseSyncService creates a new release sync service
func NewReleaseSyncService(cfg ReleaseSyncServiceConfig) *ReleaseSyncService {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = github.DefaultPerPage
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReleaseSyncService{
		github:      cfg.GitHub,
		releases:    cfg.Releases,
		modules:     cfg.Modules,
		syncConfigs: cfg.SyncConfigs,
		perPage:     perPage,
		log:         log,
	}
}

// SyncModuleReleases stores GitHub releases of githubRepo not yet known for
// moduleID. Running it again with unchanged GitHub data stores nothing. All
// failures are reported in the result rather than returned.
func (s *ReleaseSyncService) SyncModuleReleases(ctx context.Context, moduleID, githubRepo, token string) model.SyncResult {
	result := model.SyncResult{Errors: []string{}}
	fail := func(err error) model.SyncResult {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	owner, repo, err := github.ParseRepo(githubRepo)
	if err != nil {
		return fail(err)
	}

	fetched, err := s.github.ListReleases(ctx, owner, repo, s.perPage, token)
	if err != nil {
		return fail(err)
	}

	knownIDs, err := s.releases.ListGitHubReleaseIDs(ctx, moduleID)
	if err != nil {
		return fail(err)
	}
	known := make(map[int64]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}

	prepared := make([]*model.Release, 0, len(fetched))
	for _, gr := range fetched {
		if _, ok := known[gr.ID]; ok {
			continue
		}
		rel, err := prepareRelease(moduleID, gr)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		prepared = append(prepared, rel)
	}

	if len(prepared) == 0 {
		s.markSynced(ctx, moduleID, nil, &result)
		result.Success = len(result.Errors) == 0
		return result
	}

	latestPending, err := s.assignLatest(ctx, moduleID, prepared)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	var newestID *int64
	latestLost := false
	for _, rel := range prepared {
		if err := s.releases.Create(ctx, rel); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				// Stored concurrently by another run
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("failed to store release %s: %v", rel.Version, err))
			if rel == latestPending {
				latestLost = true
			}
			continue
		}
		result.NewReleases++
		if newestID == nil || *rel.GitHubReleaseID > *newestID {
			newestID = rel.GitHubReleaseID
		}
	}

	if latestLost {
		if err := s.restoreLatest(ctx, moduleID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if result.NewReleases > 0 {
		if err := s.modules.TouchLastUpdated(ctx, moduleID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	s.markSynced(ctx, moduleID, newestID, &result)

	result.Success = len(result.Errors) == 0
	s.log.WithFields(logrus.Fields{
		"module_id":    moduleID,
		"github_repo":  githubRepo,
		"new_releases": result.NewReleases,
		"errors":       len(result.Errors),
	}).Debug("release sync finished")
	return result
}

// assignLatest decides which release of the module is latest once prepared
// are stored. When a prepared release wins, stored flags are cleared and the
// winner is returned; otherwise the stored winner is flagged and nil returned.
// Stored releases win ties.
func (s *ReleaseSyncService) assignLatest(ctx context.Context, moduleID string, prepared []*model.Release) (*model.Release, error) {
	stored, err := s.releases.ListVersions(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	all := make([]string, 0, len(stored)+len(prepared))
	for _, sv := range stored {
		all = append(all, sv.Version)
	}
	for _, rel := range prepared {
		all = append(all, rel.Version)
	}
	latest := version.Latest(all)

	for _, sv := range stored {
		if version.Compare(sv.Version, latest) == 0 {
			return nil, s.releases.SetLatest(ctx, moduleID, sv.ID)
		}
	}

	for _, rel := range prepared {
		if version.Compare(rel.Version, latest) == 0 {
			if err := s.releases.ClearLatest(ctx, moduleID); err != nil {
				return nil, err
			}
			rel.IsLatest = true
			return rel, nil
		}
	}
	return nil, nil
}

// restoreLatest flags the best stored release after the chosen latest failed to insert
func (s *ReleaseSyncService) restoreLatest(ctx context.Context, moduleID string) error {
	stored, err := s.releases.ListVersions(ctx, moduleID)
	if err != nil || len(stored) == 0 {
		return err
	}

	versions := make([]string, 0, len(stored))
	for _, sv := range stored {
		versions = append(versions, sv.Version)
	}
	latest := version.Latest(versions)
	for _, sv := range stored {
		if version.Compare(sv.Version, latest) == 0 {
			return s.releases.SetLatest(ctx, moduleID, sv.ID)
		}
	}
	return nil
}

func (s *ReleaseSyncService) markSynced(ctx context.Context, moduleID string, lastReleaseID *int64, result *model.SyncResult) {
	if err := s.syncConfigs.MarkSynced(ctx, moduleID, lastReleaseID); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
}

// prepareRelease maps a GitHub release onto a new release row
func prepareRelease(moduleID string, gr github.Release) (*model.Release, error) {
	mainAsset, ok := github.SelectMainAsset(gr.Assets)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAssets, gr.TagName)
	}

	assets := make([]model.ReleaseAsset, 0, len(gr.Assets))
	for _, a := range gr.Assets {
		assets = append(assets, model.ReleaseAsset{
			Name:        a.Name,
			DownloadURL: a.DownloadURL,
			Size:        a.Size,
			ContentType: a.ContentType,
		})
	}

	id := gr.ID
	tag := gr.TagName
	rel := &model.Release{
		ModuleID:        moduleID,
		Version:         version.Normalize(gr.TagName),
		DownloadURL:     mainAsset.DownloadURL,
		Size:            github.FormatSize(github.TotalSize(gr.Assets)),
		GitHubReleaseID: &id,
		GitHubTagName:   &tag,
		Assets:          assets,
	}
	if gr.Body != "" {
		body := gr.Body
		rel.Changelog = &body
	}
	return rel, nil
}
