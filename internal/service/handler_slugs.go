package service

import (
	"context"
	"fmt"

	"github.com/forgo/modhub/internal/model"
)

// slugProgressEvery is how many modules pass between progress writes
const slugProgressEvery = 10

// SlugHandler assigns a unique slug to every module that has none
type SlugHandler struct {
	modules ModuleRepository
}

// NewSlugHandler creates a new generate_slugs handler
func NewSlugHandler(modules ModuleRepository) *SlugHandler {
	return &SlugHandler{modules: modules}
}

// Handle implements JobHandler
func (h *SlugHandler) Handle(ctx context.Context, run *JobRun, params model.JobParams) (model.JobResult, error) {
	if _, ok := params.(model.SlugParams); !ok {
		return model.JobResult{}, fmt.Errorf("%w: expected slug parameters", ErrInvalidJobParams)
	}

	existing, err := h.modules.ListSlugs(ctx)
	if err != nil {
		return model.JobResult{}, err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}

	modules, err := h.modules.ListMissingSlug(ctx)
	if err != nil {
		return model.JobResult{}, err
	}

	total := len(modules)
	run.Logf(ctx, model.LogLevelInfo, "Generating slugs for %d modules", total)

	result := model.JobResult{Errors: []string{}}
	for i, m := range modules {
		// Slugs chosen earlier in this run stay reserved even if their write fails
		slug := UniqueSlug(Slugify(m.Author, m.Name), taken)
		if err := h.modules.UpdateSlug(ctx, m.ID, slug); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.ID, err))
			run.Logf(ctx, model.LogLevelError, "Failed to set slug for %s: %v", m.ID, err)
		} else {
			result.ProcessedCount++
		}

		if (i+1)%slugProgressEvery == 0 {
			run.Progress(ctx, (i+1)*100/total)
		}
	}

	result.Success = result.ErrorCount == 0
	result.Summary = fmt.Sprintf("Generated %d slugs, %d errors", result.ProcessedCount, result.ErrorCount)
	return result, nil
}
