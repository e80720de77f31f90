// Package github fetches release metadata for module source repositories.
//
// The Client wraps go-github and returns plain Release values so the sync
// engine never depends on the GitHub SDK types directly. Helpers in this
// package cover the parts of release handling that are pure:
//
//   - ParseRepo / ParseRepoURL: "owner/repo" strings and source URLs
//   - SelectMainAsset: choosing the installable file of a release
//   - FormatSize: human-readable, base-1024 sizes
package github
