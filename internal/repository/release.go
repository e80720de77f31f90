package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// ReleaseRepository handles release data access
type ReleaseRepository struct {
	db database.Database
}

// NewReleaseRepository creates a new release repository
func NewReleaseRepository(db database.Database) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Create inserts a release. A second release with the same GitHub release ID
// for the module fails with database.ErrDuplicate.
func (r *ReleaseRepository) Create(ctx context.Context, rel *model.Release) error {
	assets := make([]interface{}, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		doc, err := toDocument(a)
		if err != nil {
			return fmt.Errorf("failed to encode release asset: %w", err)
		}
		assets = append(assets, doc)
	}

	vars := map[string]interface{}{
		"module_id":    rel.ModuleID,
		"version":      rel.Version,
		"download_url": rel.DownloadURL,
		"size":         rel.Size,
		"downloads":    rel.Downloads,
		"is_latest":    rel.IsLatest,
		"assets":       assets,
	}

	optionalFields := ""
	if rel.Changelog != nil {
		optionalFields += ",\n\t\t\tchangelog: $changelog"
		vars["changelog"] = *rel.Changelog
	}
	if rel.GitHubReleaseID != nil {
		optionalFields += ",\n\t\t\tgithub_release_id: $github_release_id"
		vars["github_release_id"] = *rel.GitHubReleaseID
	}
	if rel.GitHubTagName != nil {
		optionalFields += ",\n\t\t\tgithub_tag_name: $github_tag_name"
		vars["github_tag_name"] = *rel.GitHubTagName
	}

	query := `
		CREATE release CONTENT {
			module_id: type::record($module_id),
			version: $version,
			download_url: $download_url,
			size: $size,
			downloads: $downloads,
			is_latest: $is_latest,
			assets: $assets,
			created_at: time::now()` + optionalFields + `
		}
	`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("release %s already stored for %s: %w", rel.Version, rel.ModuleID, err)
		}
		return fmt.Errorf("failed to create release: %w", err)
	}

	row, ok := firstRow(result)
	if !ok {
		return fmt.Errorf("failed to create release: %w", errUnexpectedFormat)
	}
	rel.ID = recordID(row["id"])
	if t := getTime(row, "created_at"); t != nil {
		rel.CreatedAt = *t
	}
	return nil
}

// ListGitHubReleaseIDs returns the GitHub release IDs already stored for a module
func (r *ReleaseRepository) ListGitHubReleaseIDs(ctx context.Context, moduleID string) ([]int64, error) {
	query := `
		SELECT github_release_id FROM release
		WHERE module_id = type::record($module_id) AND github_release_id != NONE
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"module_id": moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to list github release ids: %w", err)
	}

	rows := allRows(result)
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if id, ok := toInt64(row["github_release_id"]); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListVersions returns the ID and version of every stored release of a module
func (r *ReleaseRepository) ListVersions(ctx context.Context, moduleID string) ([]model.StoredVersion, error) {
	query := `SELECT id, version FROM release WHERE module_id = type::record($module_id)`

	result, err := r.db.Query(ctx, query, map[string]interface{}{"module_id": moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to list release versions: %w", err)
	}

	rows := allRows(result)
	versions := make([]model.StoredVersion, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, model.StoredVersion{
			ID:      recordID(row["id"]),
			Version: getString(row, "version"),
		})
	}
	return versions, nil
}

// ListByModule returns all releases of a module, newest first
func (r *ReleaseRepository) ListByModule(ctx context.Context, moduleID string) ([]*model.Release, error) {
	query := `SELECT * FROM release WHERE module_id = type::record($module_id) ORDER BY created_at DESC`

	result, err := r.db.Query(ctx, query, map[string]interface{}{"module_id": moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	rows := allRows(result)
	releases := make([]*model.Release, 0, len(rows))
	for _, row := range rows {
		releases = append(releases, parseRelease(row))
	}
	return releases, nil
}

// ClearLatest unsets is_latest on every release of a module
func (r *ReleaseRepository) ClearLatest(ctx context.Context, moduleID string) error {
	query := `UPDATE release SET is_latest = false WHERE module_id = type::record($module_id) AND is_latest = true`

	if err := r.db.Execute(ctx, query, map[string]interface{}{"module_id": moduleID}); err != nil {
		return fmt.Errorf("failed to clear latest release: %w", err)
	}
	return nil
}

// SetLatest makes releaseID the only latest release of its module
func (r *ReleaseRepository) SetLatest(ctx context.Context, moduleID, releaseID string) error {
	err := database.NewAtomicBatch().
		Add(`UPDATE release SET is_latest = false WHERE module_id = type::record($module_id) AND is_latest = true`,
			map[string]interface{}{"module_id": moduleID}).
		Add(`UPDATE type::record($id) SET is_latest = true`,
			map[string]interface{}{"id": releaseID}).
		Execute(ctx, r.db)
	if err != nil {
		return fmt.Errorf("failed to set latest release: %w", err)
	}
	return nil
}

func parseRelease(data map[string]interface{}) *model.Release {
	rel := &model.Release{
		ID:              recordID(data["id"]),
		ModuleID:        recordID(data["module_id"]),
		Version:         getString(data, "version"),
		DownloadURL:     getString(data, "download_url"),
		Size:            getString(data, "size"),
		Changelog:       getStringPtr(data, "changelog"),
		Downloads:       getInt(data, "downloads"),
		IsLatest:        getBool(data, "is_latest"),
		GitHubReleaseID: getInt64Ptr(data, "github_release_id"),
		GitHubTagName:   getStringPtr(data, "github_tag_name"),
	}

	if raw, ok := data["assets"].([]interface{}); ok {
		for _, item := range raw {
			var a model.ReleaseAsset
			if err := decodeJSON(item, &a); err == nil {
				rel.Assets = append(rel.Assets, a)
			}
		}
	}
	if t := getTime(data, "created_at"); t != nil {
		rel.CreatedAt = *t
	}
	return rel
}
