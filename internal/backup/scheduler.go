package backup

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BackupRunner is the slice of the Service the scheduler drives.
type BackupRunner interface {
	CreateBackup(kind Kind) (*Artifact, error)
}

// Pruner is the retention slice of the Service the scheduler drives.
type Pruner interface {
	Prune(maxBackups int) (int, error)
}

// SchedulerState describes what the backup timer loop is doing.
type SchedulerState string

const (
	// StateIdle means no backup is in flight.
	StateIdle SchedulerState = "idle"
	// StateRunning means a backup is executing right now.
	StateRunning SchedulerState = "running"
	// StateCooldown means the last run failed and a one-shot retry is
	// pending before the normal interval resumes.
	StateCooldown SchedulerState = "cooldown"
)

// SchedulerConfig carries the timer settings.
type SchedulerConfig struct {
	Interval      time.Duration // between scheduled backups
	RetryDelay    time.Duration // base delay before retrying a failed run
	PruneInterval time.Duration // between retention sweeps (daily in production)
	MaxBackups    int           // retention window handed to Prune
}

// Scheduler owns two independent timers: one driving scheduled backups
// and one driving retention pruning. At most one backup executes at a
// time, enforced by the scheduler's own state flag — adequate because the
// scheduler is a process-local singleton. Both timers stop as a unit; an
// in-flight backup is allowed to finish rather than being interrupted.
type Scheduler struct {
	runner BackupRunner
	pruner Pruner
	cfg    SchedulerConfig
	logger Logger

	mu       sync.Mutex
	state    SchedulerState
	failures int // consecutive backup failures, drives the retry backoff

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(runner BackupRunner, pruner Pruner, cfg SchedulerConfig, logger Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		pruner: pruner,
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the backup loop's current state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches both timer loops. It is an error to start a scheduler
// that is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}
	if s.cfg.Interval <= 0 || s.cfg.PruneInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.backupLoop(ctx)
	go s.pruneLoop(ctx)

	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval.String(),
		"prune_interval", s.cfg.PruneInterval.String(),
		"retention", s.cfg.MaxBackups)
	return nil
}

// Stop cancels both timers and waits for any in-flight run to finish.
// Safe to call on a scheduler that was never started.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// backupLoop fires at the configured interval, shortening to the retry
// delay (with exponential growth per consecutive failure) after a failed
// run.
func (s *Scheduler) backupLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.RunBackupNow()
			timer.Reset(s.nextDelay())
		}
	}
}

// RunBackupNow executes one scheduled backup unless one is already in
// flight, in which case the invocation is skipped rather than queued.
// Returns true if a backup was attempted.
func (s *Scheduler) RunBackupNow() bool {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		s.logger.Warn("scheduled backup skipped: previous run still in flight")
		return false
	}
	s.state = StateRunning
	s.mu.Unlock()

	_, err := s.runner.CreateBackup(KindScheduled)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		s.state = StateCooldown
		s.logger.Error("scheduled backup failed", "error", err, "consecutive_failures", s.failures)
		return true
	}
	s.failures = 0
	s.state = StateIdle
	return true
}

// nextDelay is the normal interval after a success, or the retry delay
// doubled per consecutive failure (capped at the interval) after a
// failure.
func (s *Scheduler) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures == 0 {
		return s.cfg.Interval
	}
	delay := s.cfg.RetryDelay << (s.failures - 1)
	if delay > s.cfg.Interval || delay <= 0 {
		delay = s.cfg.Interval
	}
	return delay
}

// pruneLoop runs retention on its own timer, independent of backup
// creation. Pruning only sees registered artifacts, so it is safe to run
// while a backup is being written.
func (s *Scheduler) pruneLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.pruner.Prune(s.cfg.MaxBackups)
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("retention sweep complete", "deleted", deleted)
			}
		}
	}
}
