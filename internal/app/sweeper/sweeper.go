// Package sweeper runs the auto-release sweep: a periodic pass that completes
// reservations whose occupancy window has elapsed and frees their resources.
// It is an explicitly owned component the host process starts and stops, not
// an ambient timer.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hotelier/internal/app/reservations"
)

const DefaultInterval = 60 * time.Second

type Sweeper struct {
	service  *reservations.Service
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	wg   sync.WaitGroup
	stop context.CancelFunc
}

func New(service *reservations.Service, interval time.Duration, logger *slog.Logger, now func() time.Time) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{service: service, interval: interval, logger: logger, now: now}
}

// Start launches the sweep loop. It runs until the parent context is done or
// Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Info("auto-release sweep started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("auto-release sweep stopped")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes a single sweep pass. Safe to call directly; a pass over an
// already-swept dataset reclaims nothing.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	reclaimed := s.service.ReleaseElapsed(ctx, s.now())
	if reclaimed > 0 {
		s.logger.Info("auto-release sweep reclaimed reservations", "count", reclaimed)
	}
	return reclaimed
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
}
