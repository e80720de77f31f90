package model

import "time"

// Module is a published package whose releases may be mirrored from GitHub.
// Only the fields the sync subsystem reads or writes are modelled.
type Module struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Author       string     `json:"author"`
	Slug         *string    `json:"slug,omitempty"`
	SourceURL    *string    `json:"source_url,omitempty"`
	IsOpenSource bool       `json:"is_open_source"`
	IsPublished  bool       `json:"is_published"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// HasSlug reports whether a non-empty slug is set
func (m *Module) HasSlug() bool {
	return m.Slug != nil && *m.Slug != ""
}
