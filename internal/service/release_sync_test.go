package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/logger"
	"github.com/forgo/modhub/internal/model"
)

const testModule = "module:foo"

type syncFixture struct {
	lister   *fakeLister
	releases *memReleaseRepo
	modules  *memModuleRepo
	configs  *memSyncConfigRepo
	svc      *ReleaseSyncService
}

func newSyncFixture(releases ...github.Release) *syncFixture {
	f := &syncFixture{
		lister:   &fakeLister{releases: map[string][]github.Release{"acme/foo": releases}},
		releases: &memReleaseRepo{},
		modules:  &memModuleRepo{},
		configs: newMemSyncConfigRepo(&model.ModuleSyncConfig{
			ModuleID:   testModule,
			GitHubRepo: "acme/foo",
			Enabled:    true,
		}),
	}
	f.svc = NewReleaseSyncService(ReleaseSyncServiceConfig{
		GitHub:      f.lister,
		Releases:    f.releases,
		Modules:     f.modules,
		SyncConfigs: f.configs,
		Logger:      logger.Discard(),
	})
	return f
}

func (f *syncFixture) sync(t *testing.T) model.SyncResult {
	t.Helper()
	return f.svc.SyncModuleReleases(context.Background(), testModule, "acme/foo", "")
}

func (f *syncFixture) latestVersion(t *testing.T) string {
	t.Helper()
	latest := f.releases.latest(testModule)
	require.Len(t, latest, 1, "exactly one latest release")
	return latest[0].Version
}

// ============================================================================
// Scenarios
// ============================================================================

func TestSyncModuleReleases_FirstRelease(t *testing.T) {
	f := newSyncFixture(ghRelease(101, "v1.0.0", ghAsset("foo.zip", 1048576)))

	result := f.sync(t)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewReleases)
	assert.Empty(t, result.Errors)

	stored := f.releases.byModule(testModule)
	require.Len(t, stored, 1)
	rel := stored[0]
	assert.Equal(t, "1.0.0", rel.Version)
	assert.Equal(t, "1.00 MB", rel.Size)
	assert.True(t, rel.IsLatest)
	assert.Equal(t, 0, rel.Downloads)
	assert.Equal(t, "https://github.com/dl/foo.zip", rel.DownloadURL)
	require.NotNil(t, rel.GitHubTagName)
	assert.Equal(t, "v1.0.0", *rel.GitHubTagName)
	require.Len(t, rel.Assets, 1)

	assert.Equal(t, 1, f.modules.touched[testModule])
	assert.Equal(t, 1, f.configs.synced[testModule])
	require.NotNil(t, f.configs.configs[0].LastReleaseID)
	assert.Equal(t, int64(101), *f.configs.configs[0].LastReleaseID)
}

func TestSyncModuleReleases_Idempotent(t *testing.T) {
	f := newSyncFixture(
		ghRelease(2, "v1.1.0", ghAsset("foo.zip", 10)),
		ghRelease(1, "v1.0.0", ghAsset("foo.zip", 10)),
	)

	first := f.sync(t)
	second := f.sync(t)

	assert.Equal(t, 2, first.NewReleases)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.NewReleases)
	assert.Len(t, f.releases.byModule(testModule), 2)
	assert.Equal(t, "1.1.0", f.latestVersion(t))

	// Only the first run touched lastUpdated; both stamped lastSyncAt
	assert.Equal(t, 1, f.modules.touched[testModule])
	assert.Equal(t, 2, f.configs.synced[testModule])
}

func TestSyncModuleReleases_OlderReleaseArrivesLater(t *testing.T) {
	f := newSyncFixture(ghRelease(20, "v2.0.0", ghAsset("foo.zip", 10)))
	f.sync(t)
	require.Equal(t, "2.0.0", f.latestVersion(t))

	f.lister.releases["acme/foo"] = []github.Release{
		ghRelease(20, "v2.0.0", ghAsset("foo.zip", 10)),
		ghRelease(15, "v1.5.0", ghAsset("foo.zip", 10)),
	}
	result := f.sync(t)

	assert.Equal(t, 1, result.NewReleases)
	assert.Equal(t, "2.0.0", f.latestVersion(t))
}

func TestSyncModuleReleases_NewerReleaseMovesLatest(t *testing.T) {
	f := newSyncFixture(ghRelease(1, "v1.0.0", ghAsset("foo.zip", 10)))
	f.sync(t)

	f.lister.releases["acme/foo"] = []github.Release{ghRelease(2, "v1.0.1", ghAsset("foo.zip", 10))}
	f.sync(t)

	assert.Equal(t, "1.0.1", f.latestVersion(t))
}

func TestSyncModuleReleases_PrereleaseDoesNotBeatRelease(t *testing.T) {
	f := newSyncFixture(
		ghRelease(3, "v2.0-beta", ghAsset("foo.zip", 10)),
		ghRelease(2, "v2.0.0", ghAsset("foo.zip", 10)),
		ghRelease(1, "v1.9", ghAsset("foo.zip", 10)),
	)

	result := f.sync(t)

	assert.Equal(t, 3, result.NewReleases)
	assert.Equal(t, "2.0.0", f.latestVersion(t))
}

// ============================================================================
// Per-item and fatal failures
// ============================================================================

func TestSyncModuleReleases_ReleaseWithoutAssetsSkipped(t *testing.T) {
	f := newSyncFixture(
		ghRelease(2, "v1.1.0"),
		ghRelease(1, "v1.0.0", ghAsset("foo.apk", 10)),
	)

	result := f.sync(t)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.NewReleases)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "v1.1.0")
	assert.Equal(t, "1.0.0", f.latestVersion(t))
}

func TestSyncModuleReleases_InsertFailureRestoresLatest(t *testing.T) {
	f := newSyncFixture(ghRelease(1, "v1.0.0", ghAsset("foo.zip", 10)))
	f.sync(t)

	f.lister.releases["acme/foo"] = []github.Release{ghRelease(2, "v2.0.0", ghAsset("foo.zip", 10))}
	f.releases.createErr = func(rel *model.Release) error {
		if rel.Version == "2.0.0" {
			return errors.New("disk full")
		}
		return nil
	}

	result := f.sync(t)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.NewReleases)
	assert.Equal(t, "1.0.0", f.latestVersion(t))
}

func TestSyncModuleReleases_MalformedRepo(t *testing.T) {
	f := newSyncFixture()

	result := f.svc.SyncModuleReleases(context.Background(), testModule, "not-a-repo", "")

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, f.lister.calls)
}

func TestSyncModuleReleases_FetchErrorBecomesSingleError(t *testing.T) {
	f := newSyncFixture()
	f.lister.err = errors.New("failed to list releases for acme/foo: dial tcp: lookup api.github.com: no such host")

	result := f.sync(t)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "acme/foo")
	assert.Empty(t, f.releases.byModule(testModule))
}

func TestSyncModuleReleases_PassesToken(t *testing.T) {
	f := newSyncFixture()

	f.svc.SyncModuleReleases(context.Background(), testModule, "acme/foo", "ghp_user")

	assert.Equal(t, []string{"ghp_user"}, f.lister.tokens)
}
