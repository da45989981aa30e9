package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/utils"
)

// DefaultCooldown is the minimum spacing between automatic backup triggers
const DefaultCooldown = 10 * time.Minute

const backupAction = "backup"

// BackupTrigger decides whether to notify the backup webhook. Attempts are
// serialized so two concurrent evaluations can never both pass the cooldown.
type BackupTrigger struct {
	mu sync.Mutex

	notifier ports.Notifier
	gate     ports.CooldownGate
	cooldown time.Duration
	clock    utils.Clock
	metrics  ports.Metrics
	logger   *zap.SugaredLogger

	lastTrigger  time.Time
	disasterMode bool
}

func NewBackupTrigger(
	notifier ports.Notifier,
	cooldown time.Duration,
	clock utils.Clock,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *BackupTrigger {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &BackupTrigger{
		notifier: notifier,
		cooldown: cooldown,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// SetGate adds a shared cooldown on top of the local one. Gate errors are
// logged and the local cooldown alone decides.
func (b *BackupTrigger) SetGate(gate ports.CooldownGate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = gate
}

// RequestTrigger notifies the webhook with snapshot. Automatic requests are
// refused inside the cooldown; manual ones bypass it but still restart it on success.
func (b *BackupTrigger) RequestTrigger(ctx context.Context, snapshot domain.SecuritySnapshot, mode domain.TriggerMode) (domain.TriggerResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.notifier == nil || !b.notifier.Configured() {
		b.metrics.ObserveTrigger(mode, "not_configured")
		return domain.TriggerResult{Reason: "not configured"}, domain.ErrNotConfigured
	}

	now := b.clock()
	if mode != domain.TriggerManual && !b.lastTrigger.IsZero() {
		if left := utils.TimeUntilExpiry(now, b.lastTrigger, b.cooldown); left > 0 {
			b.metrics.ObserveTrigger(mode, "cooldown")
			return domain.TriggerResult{Reason: "cooldown"},
				fmt.Errorf("%w: %s remaining", domain.ErrCooldown, utils.FormatDuration(left))
		}
	}

	gated := false
	if mode != domain.TriggerManual && b.gate != nil {
		ok, err := b.gate.Acquire(ctx)
		switch {
		case err != nil:
			b.logger.Warnw("Shared cooldown unavailable, using local cooldown", "error", err)
		case !ok:
			b.metrics.ObserveTrigger(mode, "cooldown")
			return domain.TriggerResult{Reason: "cooldown"},
				fmt.Errorf("%w: held by another instance", domain.ErrCooldown)
		default:
			gated = true
		}
	}

	snapshot.DisasterMode = b.disasterMode
	status, err := b.notifier.Notify(ctx, domain.BackupNotification{
		Action:   backupAction,
		At:       now,
		Mode:     mode,
		Snapshot: snapshot,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDelivery) {
			err = fmt.Errorf("%w: %v", domain.ErrDelivery, err)
		}
		if gated {
			if rerr := b.gate.Release(ctx); rerr != nil {
				b.logger.Warnw("Failed to release shared cooldown", "error", rerr)
			}
		}
		b.metrics.ObserveTrigger(mode, "failed")
		b.logger.Warnw("Backup notification failed", "mode", mode, "error", err)
		return domain.TriggerResult{Error: err.Error()}, err
	}

	b.lastTrigger = now
	b.disasterMode = true
	if mode == domain.TriggerManual && b.gate != nil {
		if err := b.gate.Claim(ctx); err != nil {
			b.logger.Warnw("Failed to claim shared cooldown", "error", err)
		}
	}
	b.metrics.ObserveTrigger(mode, "delivered")
	b.logger.Infow("Backup notification delivered",
		"mode", mode,
		"status", status,
		"level", snapshot.StatusLevel,
		"rpm", snapshot.RPM,
	)

	return domain.TriggerResult{Triggered: true, Status: status}, nil
}

// Reset clears disaster mode. The cooldown timer is kept.
func (b *BackupTrigger) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disasterMode = false
}

func (b *BackupTrigger) DisasterMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disasterMode
}

func (b *BackupTrigger) State() domain.BackupState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BackupState{
		LastTrigger:  b.lastTrigger,
		DisasterMode: b.disasterMode,
		Configured:   b.notifier != nil && b.notifier.Configured(),
	}
}
