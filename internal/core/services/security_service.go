package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
)

// SecurityService ties the metrics window, the evaluator and the backup trigger together.
type SecurityService struct {
	window     *MetricsWindow
	thresholds Thresholds
	trigger    *BackupTrigger
	metrics    ports.Metrics
	logger     *zap.SugaredLogger
}

func NewSecurityService(
	window *MetricsWindow,
	thresholds Thresholds,
	trigger *BackupTrigger,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) *SecurityService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	thresholds.Window = window.Window()
	return &SecurityService{
		window:     window,
		thresholds: thresholds,
		trigger:    trigger,
		metrics:    metrics,
		logger:     logger,
	}
}

// Window exposes the metrics window for request recording
func (s *SecurityService) Window() *MetricsWindow {
	return s.window
}

// Prune drops events that left the window
func (s *SecurityService) Prune() {
	s.window.Prune(s.window.Now())
}

// Snapshot evaluates the window without triggering anything
func (s *SecurityService) Snapshot() domain.SecuritySnapshot {
	now := s.window.Now()
	snap := Evaluate(s.window.Counts(now), now, s.thresholds)
	snap.DisasterMode = s.trigger.DisasterMode()
	s.metrics.ObserveSnapshot(snap)
	return snap
}

// Status evaluates the window and asks for an automatic backup when the
// level is CRITICAL. Trigger failures are logged and never fail the status call.
func (s *SecurityService) Status(ctx context.Context) domain.SecuritySnapshot {
	snap := s.Snapshot()
	if snap.StatusLevel != domain.StatusCritical {
		return snap
	}

	_, err := s.trigger.RequestTrigger(ctx, snap, domain.TriggerAuto)
	switch {
	case err == nil:
		snap.DisasterMode = true
		s.metrics.ObserveSnapshot(snap)
	case errors.Is(err, domain.ErrCooldown), errors.Is(err, domain.ErrNotConfigured):
		s.logger.Debugw("Automatic backup skipped", "reason", err)
	default:
		s.logger.Warnw("Automatic backup failed", "error", err, "rpm", snap.RPM, "error_ratio", snap.ErrorRatio)
	}
	return snap
}

// TriggerBackup fires a manual backup with a fresh snapshot. The result is
// always populated; the error carries the domain cause for callers that need it.
func (s *SecurityService) TriggerBackup(ctx context.Context) (domain.TriggerResult, error) {
	return s.trigger.RequestTrigger(ctx, s.Snapshot(), domain.TriggerManual)
}

// ResetDisasterMode clears the sticky disaster mode flag
func (s *SecurityService) ResetDisasterMode() domain.BackupState {
	s.trigger.Reset()
	s.logger.Infow("Disaster mode cleared")
	s.metrics.ObserveSnapshot(s.Snapshot())
	return s.trigger.State()
}

func (s *SecurityService) BackupState() domain.BackupState {
	return s.trigger.State()
}
