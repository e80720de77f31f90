// Package helpers provides assertion helpers for repository integration tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/forgo/modhub/internal/model"
)

// ============================================================================
// Database Assertion Helpers
// ============================================================================

func queryRows(t *testing.T, db database.Database, query string, vars map[string]interface{}) []interface{} {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := db.Query(ctx, query, vars)
	if err != nil {
		t.Fatalf("helpers: query failed: %v", err)
	}
	return database.Rows(results, 0)
}

// AssertRecordExists checks that a record with the full ID (table:key) exists
func AssertRecordExists(t *testing.T, db database.Database, id string) {
	t.Helper()

	rows := queryRows(t, db, "SELECT * FROM type::record($id)", map[string]interface{}{"id": id})
	if len(rows) == 0 {
		t.Errorf("expected record %s to exist, but it doesn't", id)
	}
}

// AssertRecordNotExists checks that a record with the full ID does not exist
func AssertRecordNotExists(t *testing.T, db database.Database, id string) {
	t.Helper()

	rows := queryRows(t, db, "SELECT * FROM type::record($id)", map[string]interface{}{"id": id})
	if len(rows) > 0 {
		t.Errorf("expected record %s to not exist, but it does", id)
	}
}

// CountJobs returns how many jobs have the given status
func CountJobs(t *testing.T, db database.Database, status model.JobStatus) int {
	t.Helper()

	rows := queryRows(t, db,
		"SELECT count() AS count FROM job WHERE status = $status GROUP ALL",
		map[string]interface{}{"status": status})
	if len(rows) == 0 {
		return 0
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		t.Fatalf("helpers: unexpected count row %T", rows[0])
	}
	switch n := row["count"].(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case int:
		return n
	}
	t.Fatalf("helpers: unexpected count type %T", row["count"])
	return 0
}

// CountLatest returns how many releases of moduleID are flagged latest
func CountLatest(t *testing.T, db database.Database, moduleID string) int {
	t.Helper()

	rows := queryRows(t, db,
		"SELECT id FROM release WHERE module_id = type::record($module_id) AND is_latest = true",
		map[string]interface{}{"module_id": moduleID})
	return len(rows)
}

// ============================================================================
// Utility Helpers
// ============================================================================

// StringPtr returns a pointer to the string
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to the int64
func Int64Ptr(i int64) *int64 {
	return &i
}

// TimePtr returns a pointer to the time
func TimePtr(t time.Time) *time.Time {
	return &t
}
