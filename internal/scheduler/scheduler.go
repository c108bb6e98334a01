package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	PruneRateLimiterSpec  = "@every 1m"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
)

// Pruner drops stale entries and reports how many were removed.
type Pruner interface {
	Prune() int
}

type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	limiter Pruner
	log     *slog.Logger
}

func New(ctx context.Context, limiter Pruner, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		limiter: limiter,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(PruneRateLimiterSpec, s.pruneRateLimiter); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneRateLimiter() {
	if s.ctx.Err() != nil {
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", s.ctx.Err())
		return
	}

	removed := s.limiter.Prune()
	if removed > 0 {
		s.log.DebugContext(s.ctx, "Idle rate limiter clients are pruned",
			"removed", removed)
	}
}
