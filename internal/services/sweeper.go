package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nightowl-social/nightowl/internal/logging"
)

const (
	sweepConcurrency   = 8
	sweepRecordTimeout = 2 * time.Second
)

// Sweeper periodically expires overdue pending pings. It drives the same
// transition path as user actions, so a sweep racing a respond or cancel is
// settled by the store's compare-and-set: one side commits, the other just
// observes InvalidTransition.
type Sweeper struct {
	pings     PingServiceInterface
	logger    *logging.Logger
	interval  time.Duration
	batchSize int

	cron     *cron.Cron
	sweeping atomic.Bool
}

func NewSweeper(pings PingServiceInterface, logger *logging.Logger, interval time.Duration, batchSize int) *Sweeper {
	if logger == nil {
		logger = logging.Default
	}
	return &Sweeper{
		pings:     pings,
		logger:    logger.With(logging.Fields{"component": "sweeper"}),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start schedules sweeps on the configured interval until Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	c := cron.New()
	schedule := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(schedule, func() {
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("Sweeper started", logging.Fields{"interval": s.interval.String()})
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Sweeper stopped")
}

// Sweep runs one batch. Overlapping runs are skipped: if the previous sweep
// is still going, this tick is a no-op and the next one picks up the slack.
func (s *Sweeper) Sweep(ctx context.Context) (expired int, err error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.logger.Debug("Previous sweep still running, skipping tick")
		return 0, nil
	}
	defer s.sweeping.Store(false)

	ids, err := s.pings.ListExpiredPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to list expired pings", logging.Fields{"error": err.Error()})
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var count atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			// A stuck record only costs its own timeout, not the batch.
			recCtx, cancel := context.WithTimeout(gctx, sweepRecordTimeout)
			defer cancel()

			_, expireErr := s.pings.Expire(recCtx, id)
			switch {
			case expireErr == nil:
				count.Add(1)
			case errors.Is(expireErr, ErrInvalidTransition), errors.Is(expireErr, ErrPingNotFound):
				// Lost the race to a user-driven transition; nothing to do.
			default:
				s.logger.Warn("Failed to expire ping", logging.Fields{
					"ping_id": id.String(),
					"error":   expireErr.Error(),
				})
			}
			return nil
		})
	}

	_ = g.Wait()

	expired = int(count.Load())
	if expired > 0 {
		s.logger.Info("Sweep expired pings", logging.Fields{
			"expired": expired,
			"scanned": len(ids),
		})
	}
	return expired, nil
}
