package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/service"
	apperrors "github.com/spec-kit/hubops-service/pkg/util/errorutil"
)

// SweepLockKey is the Redis key replicas contend on before sweeping.
const SweepLockKey = "hubops:scheduler:sweep"

// Sweeper runs one recurring task sweep.
type Sweeper interface {
	Today() time.Time
	Sweep(ctx context.Context, today time.Time) (*service.SweepResult, error)
}

// Locker grants short exclusive leases. persistence.Redis implements it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error)
}

// SchedulerWorker sweeps recurring tasks on a fixed interval.
type SchedulerWorker struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewSchedulerWorker builds the worker. A nil locker sweeps unguarded.
func NewSchedulerWorker(sweeper Sweeper, locker Locker, interval, lockTTL time.Duration, logger *zap.Logger) *SchedulerWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerWorker{
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   logger.Named("scheduler"),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (w *SchedulerWorker) Run(ctx context.Context) {
	w.logger.Info("scheduler worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("scheduler worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single guarded sweep. It reports whether a sweep ran.
// When the lock store is unreachable the sweep proceeds anyway; the
// per-task version check still prevents double processing.
func (w *SchedulerWorker) RunOnce(ctx context.Context) bool {
	release := func(context.Context) {}
	if w.locker != nil {
		var (
			acquired bool
			err      error
		)
		release, acquired, err = w.locker.TryLock(ctx, SweepLockKey, w.lockTTL)
		switch {
		case err != nil:
			w.logger.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case !acquired:
			w.logger.Debug("sweep lock held elsewhere")
			return false
		}
	}
	defer release(context.WithoutCancel(ctx))

	today := w.sweeper.Today()
	result, err := w.sweeper.Sweep(ctx, today)
	switch {
	case apperrors.IsConflict(err):
		w.logger.Info("sweep lost a race with another replica", zap.String("today", today.Format(domain.DateLayout)))
	case err != nil:
		w.logger.Error("sweep failed", zap.Error(err))
	default:
		w.logger.Debug("sweep finished", zap.Int("processed", result.Processed))
	}
	return true
}
