package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
)

// DefaultPerPage is the number of most recent releases fetched per repository
const DefaultPerPage = 10

// Release is a GitHub release reduced to the fields the sync engine stores
type Release struct {
	ID        int64
	TagName   string
	Name      string
	Body      string
	CreatedAt time.Time
	Assets    []Asset
}

// Asset is a downloadable file attached to a release
type Asset struct {
	ID          int64
	Name        string
	DownloadURL string
	Size        int64
	ContentType string
}

// ClientConfig holds GitHub client settings
type ClientConfig struct {
	// Token is used when a call does not supply a per-user token
	Token string

	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests)
	BaseURL string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client lists releases through the GitHub REST API
type Client struct {
	base  *gh.Client
	token string
}

// NewClient creates a new GitHub release client
func NewClient(cfg ClientConfig) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	base := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
		base.BaseURL = u
	}

	return &Client{base: base, token: cfg.Token}, nil
}

// ListReleases returns up to perPage of the most recent releases of owner/repo.
// token, if non-empty, takes precedence over the client's default token.
func (c *Client) ListReleases(ctx context.Context, owner, repo string, perPage int, token string) ([]Release, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	client := c.base
	if token == "" {
		token = c.token
	}
	if token != "" {
		client = client.WithAuthToken(token)
	}

	releases, _, err := client.Repositories.ListReleases(ctx, owner, repo, &gh.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s/%s: %w", owner, repo, err)
	}

	out := make([]Release, 0, len(releases))
	for _, r := range releases {
		out = append(out, convertRelease(r))
	}
	return out, nil
}

func convertRelease(r *gh.RepositoryRelease) Release {
	rel := Release{
		ID:        r.GetID(),
		TagName:   r.GetTagName(),
		Name:      r.GetName(),
		Body:      r.GetBody(),
		CreatedAt: r.GetCreatedAt().Time,
		Assets:    make([]Asset, 0, len(r.Assets)),
	}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, Asset{
			ID:          a.GetID(),
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
			Size:        int64(a.GetSize()),
			ContentType: a.GetContentType(),
		})
	}
	return rel
}
