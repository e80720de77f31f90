package model

import "time"

// Release is one downloadable version of a module.
// Rows are immutable after creation except for Downloads and IsLatest.
type Release struct {
	ID              string         `json:"id"`
	ModuleID        string         `json:"module_id"`
	Version         string         `json:"version"`
	DownloadURL     string         `json:"download_url"`
	Size            string         `json:"size"`
	Changelog       *string        `json:"changelog,omitempty"`
	Downloads       int            `json:"downloads"`
	IsLatest        bool           `json:"is_latest"`
	GitHubReleaseID *int64         `json:"github_release_id,omitempty"`
	GitHubTagName   *string        `json:"github_tag_name,omitempty"`
	Assets          []ReleaseAsset `json:"assets,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ReleaseAsset is a file attached to a release
type ReleaseAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// StoredVersion is the minimal projection of an existing release used when
// choosing which release of a module is the latest
type StoredVersion struct {
	ID      string
	Version string
}

// SyncResult is the outcome of reconciling one module against GitHub
type SyncResult struct {
	Success     bool     `json:"success"`
	NewReleases int      `json:"new_releases"`
	Errors      []string `json:"errors"`
}
