package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"communityhub/internal/core/domain"
)

func newTestSecurity(t *testing.T, notifier *fakeNotifier) (*SecurityService, *fakeClock) {
	clock := newFakeClock()
	logger := zaptest.NewLogger(t).Sugar()
	window := NewMetricsWindow(time.Minute, clock.Now)
	trigger := NewBackupTrigger(notifier, 10*time.Minute, clock.Now, nil, logger)
	return NewSecurityService(window, DefaultThresholds(), trigger, nil, logger), clock
}

func TestSecurityService_StatusAutoTriggersOnCritical(t *testing.T) {
	notifier := &fakeNotifier{configured: true, status: 200}
	svc, _ := newTestSecurity(t, notifier)

	recordN(svc.Window(), "10.1.1.1", 100, 200)
	snap := svc.Status(context.Background())
	assert.Equal(t, domain.StatusOK, snap.StatusLevel)
	assert.Empty(t, notifier.Sent())
	assert.False(t, snap.DisasterMode)

	recordN(svc.Window(), "10.1.1.2", 60, 503)
	snap = svc.Status(context.Background())
	assert.Equal(t, domain.StatusCritical, snap.StatusLevel)
	assert.True(t, snap.DisasterMode)
	require.Len(t, notifier.Sent(), 1)
	assert.Equal(t, domain.TriggerAuto, notifier.Sent()[0].Mode)

	// polling again inside the cooldown does not notify twice
	snap = svc.Status(context.Background())
	assert.Equal(t, domain.StatusCritical, snap.StatusLevel)
	assert.Len(t, notifier.Sent(), 1)
}

func TestSecurityService_StatusSurvivesDeliveryFailure(t *testing.T) {
	notifier := &fakeNotifier{configured: true, err: assert.AnError}
	svc, _ := newTestSecurity(t, notifier)

	recordN(svc.Window(), "10.1.1.1", 700, 200)
	snap := svc.Status(context.Background())
	assert.Equal(t, domain.StatusCritical, snap.StatusLevel)
	assert.False(t, snap.DisasterMode)
}

func TestSecurityService_ManualTriggerAndReset(t *testing.T) {
	notifier := &fakeNotifier{configured: true, status: 204}
	svc, clock := newTestSecurity(t, notifier)

	recordN(svc.Window(), "10.1.1.1", 10, 200)
	res, err := svc.TriggerBackup(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.Equal(t, 204, res.Status)
	assert.Equal(t, 10, notifier.Sent()[0].Snapshot.RequestsInWindow)
	assert.True(t, svc.Snapshot().DisasterMode)

	state := svc.ResetDisasterMode()
	assert.False(t, state.DisasterMode)
	assert.Equal(t, clock.Now(), state.LastTrigger)
	assert.False(t, svc.Snapshot().DisasterMode)
}

func TestSecurityService_NotConfigured(t *testing.T) {
	svc, _ := newTestSecurity(t, &fakeNotifier{})

	res, err := svc.TriggerBackup(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.False(t, res.Triggered)

	recordN(svc.Window(), "x", 700, 500)
	snap := svc.Status(context.Background())
	assert.Equal(t, domain.StatusCritical, snap.StatusLevel)
	assert.False(t, snap.DisasterMode)
}
