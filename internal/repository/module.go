package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// ModuleRepository reads modules and writes the few fields owned by jobs
type ModuleRepository struct {
	db database.Database
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db database.Database) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// Create inserts a module. Modules are normally created by the web tier; this is
// used by seeding and tests.
func (r *ModuleRepository) Create(ctx context.Context, m *model.Module) error {
	vars := map[string]interface{}{
		"name":           m.Name,
		"author":         m.Author,
		"is_open_source": m.IsOpenSource,
		"is_published":   m.IsPublished,
	}

	optionalFields := ""
	if m.Slug != nil {
		optionalFields += ",\n\t\t\tslug: $slug"
		vars["slug"] = *m.Slug
	}
	if m.SourceURL != nil {
		optionalFields += ",\n\t\t\tsource_url: $source_url"
		vars["source_url"] = *m.SourceURL
	}

	query := `
		CREATE module CONTENT {
			name: $name,
			author: $author,
			is_open_source: $is_open_source,
			is_published: $is_published,
			created_at: time::now()` + optionalFields + `
		}
	`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	row, ok := firstRow(result)
	if !ok {
		return fmt.Errorf("failed to create module: %w", errUnexpectedFormat)
	}
	m.ID = recordID(row["id"])
	return nil
}

// GetByID retrieves a module by ID; it returns nil when the module does not exist
func (r *ModuleRepository) GetByID(ctx context.Context, id string) (*model.Module, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedFormat
	}
	return parseModule(data), nil
}

// ListPublishedOpenSource returns published open-source modules that have a source URL
func (r *ModuleRepository) ListPublishedOpenSource(ctx context.Context) ([]*model.Module, error) {
	query := `
		SELECT * FROM module
		WHERE is_published = true
		AND is_open_source = true
		AND source_url != NONE
		AND source_url != ""
	`
	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list published modules: %w", err)
	}
	return parseModules(result), nil
}

// ListMissingSlug returns modules whose slug is unset or empty, oldest first
func (r *ModuleRepository) ListMissingSlug(ctx context.Context) ([]*model.Module, error) {
	query := `SELECT * FROM module WHERE slug = NONE OR slug = NULL OR slug = "" ORDER BY created_at ASC`

	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules without slug: %w", err)
	}
	return parseModules(result), nil
}

// ListSlugs returns every non-empty slug in use
func (r *ModuleRepository) ListSlugs(ctx context.Context) ([]string, error) {
	query := `SELECT slug FROM module WHERE slug != NONE AND slug != NULL AND slug != ""`

	result, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}

	rows := allRows(result)
	slugs := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := getString(row, "slug"); s != "" {
			slugs = append(slugs, s)
		}
	}
	return slugs, nil
}

// UpdateSlug sets the slug of a module
func (r *ModuleRepository) UpdateSlug(ctx context.Context, id, slug string) error {
	err := r.db.Execute(ctx, `UPDATE type::record($id) SET slug = $slug`, map[string]interface{}{
		"id":   id,
		"slug": slug,
	})
	if err != nil {
		return fmt.Errorf("failed to update module slug: %w", err)
	}
	return nil
}

// TouchLastUpdated stamps last_updated with the current time
func (r *ModuleRepository) TouchLastUpdated(ctx context.Context, id string) error {
	err := r.db.Execute(ctx, `UPDATE type::record($id) SET last_updated = time::now()`, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("failed to touch module: %w", err)
	}
	return nil
}

func parseModule(data map[string]interface{}) *model.Module {
	return &model.Module{
		ID:           recordID(data["id"]),
		Name:         getString(data, "name"),
		Author:       getString(data, "author"),
		Slug:         getStringPtr(data, "slug"),
		SourceURL:    getStringPtr(data, "source_url"),
		IsOpenSource: getBool(data, "is_open_source"),
		IsPublished:  getBool(data, "is_published"),
		LastUpdated:  getTime(data, "last_updated"),
	}
}

func parseModules(result []interface{}) []*model.Module {
	rows := allRows(result)
	modules := make([]*model.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, parseModule(row))
	}
	return modules
}
