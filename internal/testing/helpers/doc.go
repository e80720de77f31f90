// Package helpers provides test utility functions for repository tests.
//
// # Assertion Helpers
//
// Check records directly in SurrealDB:
//
//	helpers.AssertRecordExists(t, db, job.ID)
//	helpers.AssertRecordNotExists(t, db, oldJob.ID)
//	n := helpers.CountLatest(t, db, module.ID)
//
// # Pointer Helpers
//
//	url := helpers.StringPtr("https://github.com/acme/foo")
//	id := helpers.Int64Ptr(101)
package helpers
