package repository

import (
	"context"
	"fmt"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// AuditRepository appends to the audit_log table
type AuditRepository struct {
	db database.Database
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db database.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditEntry) error {
	vars := map[string]interface{}{
		"actor_id":    entry.ActorID,
		"action":      entry.Action,
		"details":     entry.Details,
		"target_type": entry.TargetType,
		"target_id":   entry.TargetID,
	}

	optionalFields := ""
	if entry.OldValues != nil {
		optionalFields += ",\n\t\t\told_values: $old_values"
		vars["old_values"] = entry.OldValues
	}
	if entry.NewValues != nil {
		optionalFields += ",\n\t\t\tnew_values: $new_values"
		vars["new_values"] = entry.NewValues
	}

	query := `
		CREATE audit_log CONTENT {
			actor_id: $actor_id,
			action: $action,
			details: $details,
			target_type: $target_type,
			target_id: $target_id,
			created_at: time::now()` + optionalFields + `
		}
	`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	if row, ok := firstRow(result); ok {
		entry.ID = recordID(row["id"])
		if t := getTime(row, "created_at"); t != nil {
			entry.CreatedAt = *t
		}
	}
	return nil
}

// ListByTarget returns audit entries for a target, newest first
func (r *AuditRepository) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]*model.AuditEntry, error) {
	query := `
		SELECT * FROM audit_log
		WHERE target_type = $target_type AND target_id = $target_id
		ORDER BY created_at DESC LIMIT $limit
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"target_type": targetType,
		"target_id":   targetID,
		"limit":       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	rows := allRows(result)
	entries := make([]*model.AuditEntry, 0, len(rows))
	for _, row := range rows {
		e := &model.AuditEntry{
			ID:         recordID(row["id"]),
			ActorID:    getString(row, "actor_id"),
			Action:     getString(row, "action"),
			Details:    getString(row, "details"),
			TargetType: getString(row, "target_type"),
			TargetID:   getString(row, "target_id"),
			OldValues:  getMap(row, "old_values"),
			NewValues:  getMap(row, "new_values"),
		}
		if t := getTime(row, "created_at"); t != nil {
			e.CreatedAt = *t
		}
		entries = append(entries, e)
	}
	return entries, nil
}
