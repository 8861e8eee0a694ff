package services

import (
	"context"
	"sync"
	"time"

	"github.com/brokerhub/knowbot/internal/core/ports/driven"
	"github.com/brokerhub/knowbot/internal/core/ports/driving"
	"github.com/brokerhub/knowbot/internal/logger"
)

// DefaultRefreshHour is the local hour of day the daily refresh fires at.
const DefaultRefreshHour = 5

// DefaultRetryBackoff is the sleep between attempts after a failed refresh.
const DefaultRetryBackoff = 15 * time.Minute

// Scheduler drives the daily background refresh. It fires at a configured
// local hour and retries with a fixed backoff on failure rather than
// terminating the loop. When the file store supports change notification
// the scheduler also refreshes on push events.
type Scheduler struct {
	knowledge driving.KnowledgeService
	watcher   driven.Watcher

	hour     int
	tzOffset time.Duration
	backoff  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRefreshHour sets the local hour of day (0-23) the refresh fires at.
func WithRefreshHour(hour int) SchedulerOption {
	return func(s *Scheduler) {
		if hour >= 0 && hour < 24 {
			s.hour = hour
		}
	}
}

// WithTimezoneOffset sets the offset from UTC used to interpret the refresh
// hour.
func WithTimezoneOffset(offset time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.tzOffset = offset
	}
}

// WithRetryBackoff sets the sleep between attempts after a failed refresh.
func WithRetryBackoff(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithWatcher enables push-driven refresh from a file store that supports
// change notification.
func WithWatcher(w driven.Watcher) SchedulerOption {
	return func(s *Scheduler) {
		s.watcher = w
	}
}

// NewScheduler creates a refresh scheduler.
func NewScheduler(knowledge driving.KnowledgeService, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		knowledge: knowledge,
		hour:      DefaultRefreshHour,
		backoff:   DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. Blocks until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if s.watcher != nil {
		if err := s.startWatch(ctx); err != nil {
			logger.Warn("Change notification unavailable: %v", err)
		}
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// run sleeps until the next scheduled fire time, refreshes, and repeats.
// A failed refresh retries after the backoff instead of waiting a full day.
func (s *Scheduler) run(ctx context.Context) error {
	for {
		wait := s.untilNextFire(time.Now())
		logger.Debug("Next scheduled refresh in %s", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := s.refreshWithRetry(ctx); err != nil {
			return err
		}
	}
}

// refreshWithRetry runs one refresh, retrying with the configured backoff
// until it succeeds or the scheduler is stopped.
func (s *Scheduler) refreshWithRetry(ctx context.Context) error {
	for {
		err := s.knowledge.RefreshCache(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("Scheduled refresh failed, retrying in %s: %v", s.backoff, err)

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// untilNextFire computes the wait until the configured local hour, in the
// configured timezone, strictly in the future.
func (s *Scheduler) untilNextFire(now time.Time) time.Duration {
	local := now.UTC().Add(s.tzOffset)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, time.UTC)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

// startWatch subscribes to file store change events and refreshes on each.
func (s *Scheduler) startWatch(ctx context.Context) error {
	events, err := s.watcher.Watch(ctx)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				logger.Info("Source folder changed, refreshing")
				if err := s.knowledge.RefreshCache(ctx); err != nil {
					logger.Warn("Change-triggered refresh failed: %v", err)
				}
			}
		}
	}()
	return nil
}
