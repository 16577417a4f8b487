package app

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
	"github.com/yungbote/portfolio-backend/internal/services"
)

var sweepScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SweepScheduler runs the orphan sweep on a cron schedule while the server is up.
type SweepScheduler struct {
	ctx     context.Context
	log     *logger.Logger
	sweeper services.OrphanSweeper
	cron    *cron.Cron
}

func NewSweepScheduler(log *logger.Logger, sweeper services.OrphanSweeper, spec string) (*SweepScheduler, error) {
	s := &SweepScheduler{
		ctx:     context.Background(),
		log:     log.With("component", "SweepScheduler"),
		sweeper: sweeper,
		cron:    cron.New(cron.WithParser(sweepScheduleParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SweepScheduler) runOnce() {
	res, err := s.sweeper.Sweep(s.ctx)
	if err != nil {
		s.log.Warn("Scheduled orphan sweep failed", "error", err)
		return
	}
	if res.Failed > 0 {
		s.log.Warn("Scheduled orphan sweep left blobs behind", "failed", res.Failed)
	}
}

// Start runs the schedule until ctx is cancelled, then waits for an in-flight sweep.
func (s *SweepScheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("Orphan sweep scheduled", "entries", len(s.cron.Entries()))
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}
