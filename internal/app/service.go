package app

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// startStopper matches the scheduler's Start/Stop lifecycle.
type startStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts the scheduler's Start/Stop lifecycle to suture's
// Serve pattern: start, block until the context is canceled, stop. If Start
// fails the error is returned and suture restarts the service with its
// backoff policy.
type SchedulerService struct {
	scheduler startStopper
}

// NewSchedulerService wraps the scheduler as a supervised service.
func NewSchedulerService(scheduler startStopper) *SchedulerService {
	return &SchedulerService{scheduler: scheduler}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string { return "backup-scheduler" }

var _ suture.Service = (*SchedulerService)(nil)

// NewSupervisor builds the root supervisor with the scheduler service
// attached.
func NewSupervisor(a *App) *suture.Supervisor {
	sup := suture.NewSimple("aurum")
	sup.Add(NewSchedulerService(a.Scheduler()))
	return sup
}
