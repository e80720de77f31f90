package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

var errUnexpectedFormat = errors.New("unexpected result format")

// recordID renders a SurrealDB record id as "table:key"
func recordID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case map[string]interface{}:
		// {"tb": "job", "id": "xyz"} or {"tb": "job", "id": {"String": "xyz"}}
		tb, _ := v["tb"].(string)
		key := idValue(v["id"])
		if tb != "" && key != "" {
			return tb + ":" + key
		}
		return key
	}
	return fmt.Sprintf("%v", id)
}

func idValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", val)
}

// allRows flattens the records of every statement in a Query result
func allRows(results []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0)
	for i := range results {
		for _, row := range database.Rows(results, i) {
			if m, ok := row.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// firstRow returns the first record of a Query result
func firstRow(results []interface{}) (map[string]interface{}, bool) {
	rows := allRows(results)
	if len(rows) == 0 {
		return nil, false
	}
	return rows[0], true
}

// extractCount reads {count: n} from the first record of a Query result
func extractCount(results []interface{}) int {
	row, ok := firstRow(results)
	if !ok {
		return 0
	}
	return toInt(row["count"])
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case uint32:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getStringPtr(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func getInt(m map[string]interface{}, key string) int {
	return toInt(m[key])
}

func getInt64Ptr(m map[string]interface{}, key string) *int64 {
	if v, ok := toInt64(m[key]); ok {
		return &v
	}
	return nil
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// getTime reads a datetime stored natively or as an RFC3339 string
func getTime(m map[string]interface{}, key string) *time.Time {
	t, ok := parseTime(m[key])
	if !ok {
		return nil
	}
	return &t
}

func parseTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case models.CustomDateTime:
		return t.Time, true
	case *models.CustomDateTime:
		if t != nil {
			return t.Time, true
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// formatTime renders t for a <datetime> cast in SurrealQL
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// decodeJSON converts a loosely typed record value into dst via JSON
func decodeJSON(v interface{}, dst interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// toDocument converts a struct into the map stored in a SurrealDB object field
func toDocument(v interface{}) (map[string]interface{}, error) {
	doc := map[string]interface{}{}
	if err := decodeJSON(v, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
