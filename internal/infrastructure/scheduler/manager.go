// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/shared/biztime"
	"seatpool/internal/shared/logger"
)

// ReconcileJob is one scheduled maintenance pass over the seat pools. Each
// Execute call processes a full batch and reports what it changed.
type ReconcileJob interface {
	Execute(ctx context.Context) (*dto.ResyncSummary, error)
}

// SchedulerManager manages the allocation maintenance jobs on a single gocron
// instance. Singleton mode guards against a slow run overlapping the next
// tick within one process; cross-instance safety comes from the conditional
// repository operations, not from the scheduler.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterResyncJob registers the reconciliation pass. It runs immediately on
// startup and then every interval; each run gets a timeout of the interval
// itself so a wedged run cannot pile up behind the next.
func (m *SchedulerManager) RegisterResyncJob(job ReconcileJob, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runJob(ctx, "resync", job)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("allocation", "resync"),
		gocron.WithName("allocation-resync"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered resync job", "interval", interval)
	return nil
}

// RegisterExpiryJobs registers the expiration sweep and the expiry warning
// scan on the same cadence. The sweep runs first within each tick so a pool
// never receives a warning after it already expired.
func (m *SchedulerManager) RegisterExpiryJobs(expireJob, warnJob ReconcileJob, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.runJob(ctx, "expiry-sweep", expireJob)
			m.runJob(ctx, "expiry-warnings", warnJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("allocation", "expiry"),
		gocron.WithName("allocation-expiry"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered expiry jobs", "interval", interval)
	return nil
}

func (m *SchedulerManager) runJob(ctx context.Context, name string, job ReconcileJob) {
	m.logger.Debugw("scheduled job started", "job", name)

	startTime := biztime.NowUTC()
	summary, err := job.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Infow("scheduled job completed",
		"job", name,
		"pools_processed", summary.PoolsProcessed,
		"drift_corrected", summary.DriftCorrected,
		"auto_enrolled", summary.AutoEnrolled,
		"pools_expired", summary.PoolsExpired,
		"warnings_sent", summary.WarningsSent,
		"errors", len(summary.Errors),
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
