package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/model"
)

// AuditRepository persists audit entries
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditEntry) error
}

// AuditSink receives consequential actions. Recording never fails the caller.
type AuditSink interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// AuditService writes audit entries on a best-effort basis
type AuditService struct {
	repo AuditRepository
	log  logrus.FieldLogger
}

// NewAuditService creates an audit sink backed by repo
func NewAuditService(repo AuditRepository, log logrus.FieldLogger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Record appends entry; failures are logged and swallowed
func (s *AuditService) Record(ctx context.Context, entry model.AuditEntry) {
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.log.WithFields(logrus.Fields{
			"action":    entry.Action,
			"target_id": entry.TargetID,
		}).WithError(err).Warn("failed to write audit entry")
	}
}

type discardAudit struct{}

func (discardAudit) Record(context.Context, model.AuditEntry) {}
