package security

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
)

// Monitor is the part of the security service the scheduler drives
type Monitor interface {
	Prune()
	Status(ctx context.Context) domain.SecuritySnapshot
}

// Config contains scheduler configuration
type Config struct {
	PruneInterval    time.Duration
	EvaluateInterval time.Duration // 0 disables periodic evaluation
}

// Scheduler prunes the request window on a fixed tick and, when enabled,
// evaluates it so CRITICAL load can trigger a backup without anyone polling
type Scheduler struct {
	monitor Monitor
	cfg     Config
	logger  *zap.SugaredLogger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewScheduler(monitor Monitor, cfg Config, logger *zap.SugaredLogger) *Scheduler {
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = 5 * time.Second
	}
	return &Scheduler{
		monitor:  monitor,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer close(s.done)

	prune := time.NewTicker(s.cfg.PruneInterval)
	defer prune.Stop()

	var evaluate <-chan time.Time
	if s.cfg.EvaluateInterval > 0 {
		t := time.NewTicker(s.cfg.EvaluateInterval)
		defer t.Stop()
		evaluate = t.C
	}

	s.logger.Infow("Security scheduler started",
		"prune_interval", s.cfg.PruneInterval,
		"evaluate_interval", s.cfg.EvaluateInterval,
	)

	for {
		select {
		case <-prune.C:
			s.monitor.Prune()
		case <-evaluate:
			snap := s.monitor.Status(ctx)
			if snap.StatusLevel != domain.StatusOK {
				s.logger.Infow("Periodic security evaluation",
					"level", snap.StatusLevel,
					"rpm", snap.RPM,
					"error_ratio", snap.ErrorRatio,
					"disaster_mode", snap.DisasterMode,
				)
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the scheduler and, if it is running, waits for Start to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}
