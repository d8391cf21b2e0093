// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// HeartbeatSweeper evicts agent connections whose heartbeat is older than
// the timeout and returns how many it evicted.
type HeartbeatSweeper interface {
	SweepStale(now time.Time) int
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.Mutex
}

// NewSchedulerManager creates a new SchedulerManager instance. Jobs run in UTC.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterHeartbeatSweepJob runs sweeper every interval. A sweep never
// overlaps the previous one.
func (m *SchedulerManager) RegisterHeartbeatSweepJob(sweeper HeartbeatSweeper, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			m.sweepHeartbeats(sweeper)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("agent-hub", "heartbeat"),
		gocron.WithName("agent-heartbeat-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered heartbeat sweep job", "interval", interval)
	return nil
}

func (m *SchedulerManager) sweepHeartbeats(sweeper HeartbeatSweeper) {
	startTime := time.Now()
	evicted := sweeper.SweepStale(startTime)
	if evicted > 0 {
		m.logger.Infow("stale agent connections evicted",
			"count", evicted,
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler.
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

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
