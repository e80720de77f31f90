package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidJobParams indicates job parameters that cannot be decoded for the job type
var ErrInvalidJobParams = errors.New("invalid job parameters")

// JobParams is the decoded parameter set of a job. Exactly one concrete type
// exists per JobType: ScrapeParams, CleanupParams, ConfigSyncParams or SlugParams.
type JobParams interface {
	JobType() JobType
}

// ScrapeScope selects which modules a scrape job visits
type ScrapeScope string

const (
	ScrapeScopeAll      ScrapeScope = "all"      // Every enabled sync config
	ScrapeScopeOutdated ScrapeScope = "outdated" // Enabled and not synced recently
	ScrapeScopeSingle   ScrapeScope = "single"   // One module by ID
)

// ScrapeParams configures a scrape_releases job
type ScrapeParams struct {
	Scope     ScrapeScope `json:"scope"`
	ModuleID  string      `json:"moduleId,omitempty"`
	Automatic bool        `json:"automatic,omitempty"`
}

// JobType implements JobParams
func (ScrapeParams) JobType() JobType { return JobTypeScrapeReleases }

// CleanupTargetFailedJobs removes old failed job rows
const CleanupTargetFailedJobs = "failed_jobs"

// DefaultCleanupDays is the retention used when a cleanup job omits days
const DefaultCleanupDays = 30

// CleanupParams configures a cleanup job
type CleanupParams struct {
	Target string `json:"target"`
	Days   int    `json:"days,omitempty"`
}

// JobType implements JobParams
func (CleanupParams) JobType() JobType { return JobTypeCleanup }

// ConfigSyncParams configures a sync_github_configs job
type ConfigSyncParams struct {
	Automatic bool `json:"automatic,omitempty"`
}

// JobType implements JobParams
func (ConfigSyncParams) JobType() JobType { return JobTypeSyncGitHubConfigs }

// SlugParams configures a generate_slugs job
type SlugParams struct{}

// JobType implements JobParams
func (SlugParams) JobType() JobType { return JobTypeGenerateSlugs }

// DecodeJobParams converts the stored parameter map of a job into its typed
// form, applying defaults. Unknown keys are ignored.
func DecodeJobParams(jobType JobType, raw map[string]interface{}) (JobParams, error) {
	switch jobType {
	case JobTypeScrapeReleases:
		var p ScrapeParams
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		if p.Scope == "" {
			p.Scope = ScrapeScopeAll
		}
		switch p.Scope {
		case ScrapeScopeAll, ScrapeScopeOutdated:
		case ScrapeScopeSingle:
			if p.ModuleID == "" {
				return nil, fmt.Errorf("%w: moduleId is required for scope %q", ErrInvalidJobParams, p.Scope)
			}
		default:
			return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidJobParams, p.Scope)
		}
		return p, nil

	case JobTypeCleanup:
		var p CleanupParams
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		if p.Days <= 0 {
			p.Days = DefaultCleanupDays
		}
		return p, nil

	case JobTypeSyncGitHubConfigs:
		var p ConfigSyncParams
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case JobTypeGenerateSlugs:
		return SlugParams{}, nil
	}

	return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidJobParams, jobType)
}

// EncodeJobParams converts typed parameters into the map stored on the job row
func EncodeJobParams(p JobParams) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if p == nil {
		return out, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobParams, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobParams, err)
	}
	return out, nil
}

func decodeInto(raw map[string]interface{}, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJobParams, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJobParams, err)
	}
	return nil
}
