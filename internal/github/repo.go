package github

import (
	"errors"
	"fmt"
	"strings"

	giturls "github.com/whilp/git-urls"
)

// ErrInvalidRepo is returned for repository strings that are not "owner/repo"
var ErrInvalidRepo = errors.New("invalid GitHub repository")

const githubHost = "github.com"

// ParseRepo splits an "owner/repo" string
func ParseRepo(fullName string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, fullName)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// ParseRepoURL resolves a module source URL to "owner/repo". It accepts
// https, ssh and scp-style (git@github.com:owner/repo.git) URLs and reports
// false for anything not hosted on github.com or lacking an owner and repo.
func ParseRepoURL(sourceURL string) (string, bool) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", false
	}

	u, err := giturls.Parse(sourceURL)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), githubHost) {
		return "", false
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", false
	}

	repo := strings.TrimSuffix(segments[1], ".git")
	if repo == "" {
		return "", false
	}
	return segments[0] + "/" + repo, true
}
