// Package model defines the entities of the background job and release sync
// subsystem.
//
// # Jobs
//
// A Job moves pending -> running -> completed|failed. Cancelled is terminal
// and may be entered from pending or running by an external caller. Job
// parameters are stored as a map and decoded into one of the JobParams
// variants at dispatch:
//
//	params, err := model.DecodeJobParams(job.Type, job.Parameters)
//	switch p := params.(type) {
//	case model.ScrapeParams:
//	    // p.Scope, p.ModuleID
//	case model.CleanupParams:
//	    // p.Target, p.Days
//	}
//
// # Modules and releases
//
// Module, Release and ModuleSyncConfig carry only the fields read or written
// while syncing GitHub releases. At most one Release per module has IsLatest set.
package model
