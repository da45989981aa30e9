package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"communityhub/internal/core/domain"
)

func newTestTrigger(t *testing.T, notifier *fakeNotifier, clock *fakeClock) (*BackupTrigger, *countingMetrics) {
	metrics := newCountingMetrics()
	return NewBackupTrigger(notifier, 10*time.Minute, clock.Now, metrics, zaptest.NewLogger(t).Sugar()), metrics
}

func TestBackupTrigger_NotConfigured(t *testing.T) {
	trigger, metrics := newTestTrigger(t, &fakeNotifier{}, newFakeClock())

	for _, mode := range []domain.TriggerMode{domain.TriggerAuto, domain.TriggerManual} {
		res, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, mode)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
		assert.False(t, res.Triggered)
		assert.Equal(t, "not configured", res.Reason)
	}

	state := trigger.State()
	assert.False(t, state.DisasterMode)
	assert.True(t, state.LastTrigger.IsZero())
	assert.False(t, state.Configured)
	assert.Equal(t, 1, metrics.triggers["auto:not_configured"])
}

func TestBackupTrigger_NilNotifier(t *testing.T) {
	trigger := NewBackupTrigger(nil, 0, nil, nil, zaptest.NewLogger(t).Sugar())
	_, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerManual)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestBackupTrigger_CooldownAndManualOverride(t *testing.T) {
	clock := newFakeClock()
	notifier := &fakeNotifier{configured: true, status: 202}
	trigger, _ := newTestTrigger(t, notifier, clock)
	ctx := context.Background()
	snap := domain.SecuritySnapshot{StatusLevel: domain.StatusCritical, RPM: 900}

	res, err := trigger.RequestTrigger(ctx, snap, domain.TriggerAuto)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.Equal(t, 202, res.Status)
	assert.True(t, trigger.DisasterMode())
	first := trigger.State().LastTrigger

	clock.Advance(3 * time.Minute)
	res, err = trigger.RequestTrigger(ctx, snap, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrCooldown)
	assert.False(t, res.Triggered)
	assert.Equal(t, "cooldown", res.Reason)
	assert.Equal(t, first, trigger.State().LastTrigger, "refused trigger must not move the timer")

	res, err = trigger.RequestTrigger(ctx, snap, domain.TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	manualAt := trigger.State().LastTrigger
	assert.Equal(t, clock.Now(), manualAt)

	// the manual trigger restarted the cooldown
	clock.Advance(8 * time.Minute)
	_, err = trigger.RequestTrigger(ctx, snap, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrCooldown)

	clock.Advance(2 * time.Minute)
	res, err = trigger.RequestTrigger(ctx, snap, domain.TriggerAuto)
	require.NoError(t, err)
	assert.True(t, res.Triggered)

	sent := notifier.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "backup", sent[0].Action)
	assert.Equal(t, domain.TriggerAuto, sent[0].Mode)
	assert.Equal(t, domain.TriggerManual, sent[1].Mode)
	assert.Equal(t, 900, sent[1].Snapshot.RPM)
}

func TestBackupTrigger_DeliveryFailureKeepsState(t *testing.T) {
	clock := newFakeClock()
	notifier := &fakeNotifier{configured: true, err: errors.New("connection refused")}
	trigger, metrics := newTestTrigger(t, notifier, clock)

	res, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.False(t, res.Triggered)
	assert.Contains(t, res.Error, "connection refused")
	assert.False(t, trigger.DisasterMode())
	assert.True(t, trigger.State().LastTrigger.IsZero())
	assert.Equal(t, 1, metrics.triggers["auto:failed"])

	// a failed delivery does not start the cooldown
	notifier.err = nil
	notifier.status = 200
	res, err = trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
}

func TestBackupTrigger_ResetClearsDisasterModeOnly(t *testing.T) {
	clock := newFakeClock()
	trigger, _ := newTestTrigger(t, &fakeNotifier{configured: true, status: 200}, clock)

	_, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerManual)
	require.NoError(t, err)
	require.True(t, trigger.DisasterMode())

	trigger.Reset()
	assert.False(t, trigger.DisasterMode())

	_, err = trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrCooldown)
}

func TestBackupTrigger_ConcurrentAutoTriggersFireOnce(t *testing.T) {
	notifier := &fakeNotifier{configured: true, status: 200}
	trigger, _ := newTestTrigger(t, notifier, newFakeClock())

	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 10; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrCooldown)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, notifier.Sent(), 1)
}

func TestBackupTrigger_SharedGateBlocksOtherInstance(t *testing.T) {
	gate := &sharedGate{}
	ctx := context.Background()
	snap := domain.SecuritySnapshot{StatusLevel: domain.StatusCritical}

	first, _ := newTestTrigger(t, &fakeNotifier{configured: true, status: 200}, newFakeClock())
	first.SetGate(gate)
	second, metrics := newTestTrigger(t, &fakeNotifier{configured: true, status: 200}, newFakeClock())
	second.SetGate(gate)

	res, err := first.RequestTrigger(ctx, snap, domain.TriggerAuto)
	require.NoError(t, err)
	assert.True(t, res.Triggered)

	res, err = second.RequestTrigger(ctx, snap, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrCooldown)
	assert.Equal(t, "cooldown", res.Reason)
	assert.Equal(t, 1, metrics.triggers["auto:cooldown"])

	// manual triggers ignore the gate and restart it
	res, err = second.RequestTrigger(ctx, snap, domain.TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.Equal(t, 1, gate.claims)
}

func TestBackupTrigger_SharedGateReleasedOnFailure(t *testing.T) {
	gate := &sharedGate{}
	notifier := &fakeNotifier{configured: true, err: errors.New("connection refused")}
	trigger, _ := newTestTrigger(t, notifier, newFakeClock())
	trigger.SetGate(gate)

	_, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Equal(t, 1, gate.releases)
	assert.False(t, gate.held)
}

func TestBackupTrigger_SharedGateErrorFallsBackToLocal(t *testing.T) {
	gate := &sharedGate{err: errors.New("redis down")}
	trigger, _ := newTestTrigger(t, &fakeNotifier{configured: true, status: 200}, newFakeClock())
	trigger.SetGate(gate)

	res, err := trigger.RequestTrigger(context.Background(), domain.SecuritySnapshot{}, domain.TriggerAuto)
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.Zero(t, gate.releases)
}
