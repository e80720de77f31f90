// Package database provides SurrealDB connectivity for the release sync service.
//
// Repositories and tests depend on the Database interface, so they can run
// without a live server:
//
//	type Database interface {
//	    Connect(ctx context.Context) error
//	    Close() error
//	    Ping(ctx context.Context) error
//	    Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)
//	    QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)
//	    Execute(ctx context.Context, query string, vars map[string]interface{}) error
//	}
//
// Query returns one wrapper per statement in the form
// {"status": "OK", "result": [...]}. Use Rows to pull the records of a
// given statement out of that list.
//
// # Batches
//
// AtomicBatch groups statements into a single BEGIN/COMMIT TRANSACTION block.
// Variables are namespaced per statement by TxBuilder, so two statements may
// both use $module_id without clashing:
//
//	err := database.NewAtomicBatch().
//	    Add("UPDATE release SET is_latest = false WHERE module_id = $module_id", vars).
//	    Add("UPDATE type::record($id) SET is_latest = true", idVars).
//	    Execute(ctx, db)
//
// # Errors
//
// ErrNotFound, ErrDuplicate, ErrConnection and ErrQuery are returned wrapped;
// test them with errors.Is. Unique index violations reported by SurrealDB are
// mapped to ErrDuplicate.
package database
