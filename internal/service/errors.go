package service

import (
	"errors"

	"github.com/forgo/modhub/internal/github"
	"github.com/forgo/modhub/internal/model"
)

// Centralized service layer errors.
// Callers test them with errors.Is; messages carry the job or repo context.

// ===== Job Errors =====
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotPending     = errors.New("job is not pending")
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
	ErrJobNameRequired   = errors.New("job name is required")
	ErrUnknownJobType    = errors.New("unknown job type")
	ErrHandlerPanic      = errors.New("job handler panicked")
	ErrInvalidJobParams  = model.ErrInvalidJobParams
)

// ===== Handler Errors =====
var (
	ErrUnknownCleanupTarget = errors.New("unknown cleanup target")
	ErrSyncConfigNotFound   = errors.New("no enabled sync config for module")
)

// ===== Sync Errors =====
var (
	ErrInvalidRepo = github.ErrInvalidRepo
	ErrNoAssets    = errors.New("release has no assets")
)

// ===== Token Errors =====
var (
	ErrInvalidVaultKey = errors.New("token key must be 32 bytes")
	ErrSealedToken     = errors.New("sealed token is invalid")
)
