package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/forgo/modhub/internal/model"
)

type mockAuditRepo struct {
	createFunc func(ctx context.Context, entry *model.AuditEntry) error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *model.AuditEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	return nil
}

func TestAuditService_Record(t *testing.T) {
	var got *model.AuditEntry
	repo := &mockAuditRepo{createFunc: func(_ context.Context, e *model.AuditEntry) error {
		got = e
		return nil
	}}
	log, hook := test.NewNullLogger()

	NewAuditService(repo, log).Record(context.Background(), model.AuditEntry{
		ActorID:    model.SystemActor,
		Action:     model.AuditActionReleasesSynced,
		TargetType: model.AuditTargetModule,
		TargetID:   "module:1",
	})

	if assert.NotNil(t, got) {
		assert.Equal(t, "module:1", got.TargetID)
	}
	assert.Empty(t, hook.AllEntries())
}

func TestAuditService_FailureIsLoggedNotReturned(t *testing.T) {
	repo := &mockAuditRepo{createFunc: func(context.Context, *model.AuditEntry) error {
		return errors.New("audit table locked")
	}}
	log, hook := test.NewNullLogger()

	NewAuditService(repo, log).Record(context.Background(), model.AuditEntry{Action: model.AuditActionConfigsSynced})

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, model.AuditActionConfigsSynced, entry.Data["action"])
	}
}
