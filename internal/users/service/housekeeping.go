package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quizverse/quizverse/internal/users/domain"
	"github.com/quizverse/quizverse/internal/users/store"
)

// HousekeepingService periodically removes codes past their window plus the
// retention period and sessions past their refresh expiry.
type HousekeepingService struct {
	Store    store.Store
	Codes    store.Codes
	Config   Config
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to 5 minutes.
func NewHousekeepingService(st store.Store, codes store.Codes, cfg Config, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &HousekeepingService{
		Store:    st,
		Codes:    codes,
		Config:   cfg,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called or ctx ends.
func (s *HousekeepingService) Start(ctx context.Context) {
	go s.run(ctx)
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup finishes.
func (s *HousekeepingService) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(ctx)

	for {
		select {
		case <-ticker.C:
			s.Cleanup(ctx)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure is logged and
// the next step still runs. It returns the number of rows removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := s.Now()
	var total int64

	for _, kind := range []domain.CodeKind{domain.CodeVerify, domain.CodeForgot, domain.CodeReset} {
		n, err := s.Codes.DeleteCodesBefore(ctx, kind, s.Config.RetentionCutoff(kind, now))
		if err != nil {
			s.Logger.Error("failed to delete stale codes", "kind", kind, "error", err)
			continue
		}
		total += n
	}

	n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		total += n
	}

	s.Logger.Debug("housekeeping cleanup completed", "deleted", total)
	return total
}
