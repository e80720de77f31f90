// Package fixtures provides data factories for integration tests.
//
// Factories insert through the repositories so rows have the same shape as
// production data:
//
//	f := fixtures.New(tdb.DB)
//	mod := f.CreateModule(t)
//	f.CreateSyncConfig(t, mod, "acme/foo", true)
//	f.CreateRelease(t, mod, "1.0.0", 101, true)
package fixtures
