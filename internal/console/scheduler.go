package console

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSyncInterval is the fixed refresh cadence.
const DefaultSyncInterval = 30 * time.Second

// Scheduler runs a Syncer once at start and then on a fixed period. A failed
// cycle never stops the schedule; the next tick simply tries again.
type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	interval time.Duration
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	entry  cron.EntryID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(syncer Syncer, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		// SkipIfStillRunning keeps a slow device from piling up ticks
		// behind the serialized Sync.
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncer:   syncer,
		interval: interval,
		log:      logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs the first sync synchronously, then schedules the periodic one.
// The schedule stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.tick()

	id, err := s.cron.AddFunc("@every "+s.interval.String(), s.tick)
	if err != nil {
		s.cancel()
		return fmt.Errorf("scheduling sync: %w", err)
	}
	s.entry = id
	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Msg("sync scheduler started")

	go func() {
		<-s.ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

// Stop cancels the schedule and waits for a running sync to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("sync scheduler stopped")
}

// NextRun returns when the next periodic sync is due, zero if not running.
func (s *Scheduler) NextRun() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// TriggerSync runs an out-of-band sync in the background.
func (s *Scheduler) TriggerSync() {
	go s.tick()
}

func (s *Scheduler) tick() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if err := s.syncer.Sync(ctx); err != nil {
		s.log.Debug().Err(err).Msg("scheduled sync failed")
	}
}
