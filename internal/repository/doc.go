// Package repository implements SurrealDB persistence for jobs, releases,
// modules, sync configs, audit entries and sealed user tokens.
//
// Each repository accepts a database.Database and issues parameterized
// SurrealQL. Record ids are addressed through type::record($id) and rows are
// decoded with database.Rows.
//
// # Conditional writes
//
// Job writes after a claim carry the claim's run id and only apply while the
// job is still running under that id:
//
//	job, err := repo.ClaimPending(ctx, id, runID, startedEntry)
//	if job == nil {
//	    // someone else claimed it, or it was cancelled
//	}
//	ok, err := repo.Finish(ctx, id, runID, completion)
//
// A false return means the write was rejected, not that it failed.
package repository
