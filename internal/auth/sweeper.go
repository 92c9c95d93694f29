package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/og-studio/internal/repository"
)

// sweepTimeout bounds one DeleteExpired call.
const sweepTimeout = 10 * time.Second

// Sweeper purges expired session rows in the background. ValidateSession
// already deletes an expired row when its cookie comes back; the sweeper
// catches the ones whose cookies never do.
type Sweeper struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweeper creates a Sweeper. An interval of zero sweeps once on Start
// and never again.
func NewSweeper(sessions repository.SessionRepository, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start sweeps once synchronously, then keeps sweeping every interval in
// the background until Stop.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.Sweep()
		if s.interval <= 0 {
			return
		}
		s.logger.Info("starting session sweeper", slog.Duration("interval", s.interval))
		s.wg.Add(1)
		go s.run()
	})
}

// Stop ends the background loop and waits for it. Safe to call more than
// once, and without Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// Sweep deletes expired sessions now and returns how many went.
func (s *Sweeper) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("failed to delete expired sessions", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		s.logger.Info("deleted expired sessions", slog.Int64("count", n))
	}
	return n
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
