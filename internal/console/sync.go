package console

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by Sync when a call that started later has
// already applied its results.
var ErrSuperseded = errors.New("sync superseded by a newer call")

// DeviceAPI is the read side of the device the Synchronizer mirrors.
type DeviceAPI interface {
	Stats(ctx context.Context) (*models.Stats, error)
	LastCard(ctx context.Context) (*models.LastCard, error)
	Cards(ctx context.Context) ([]models.CardRecord, error)
	Logs(ctx context.Context) ([]models.AccessLogEntry, error)
}

// Synchronizer keeps the Renderer in step with the device. Calls to Sync and
// RefreshLogs are serialized; a call waiting for its turn gives up when its
// context ends.
type Synchronizer struct {
	api    DeviceAPI
	view   Renderer
	notify Notifier
	clock  clock.Clock
	log    zerolog.Logger

	turn    chan struct{}
	started atomic.Uint64 // generation handed to the latest Sync call
	applied uint64        // generation whose results are on screen; guarded by turn

	connected   atomic.Bool
	lastUpdated atomic.Int64 // unix nanoseconds, 0 until the first success
}

// NewSynchronizer creates a Synchronizer. The connectivity state starts out
// disconnected.
func NewSynchronizer(api DeviceAPI, view Renderer, notify Notifier, clk clock.Clock, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		api:    api,
		view:   view,
		notify: notify,
		clock:  clk,
		log:    logger.With().Str("component", "sync").Logger(),
		turn:   make(chan struct{}, 1),
	}
}

// Connected reports the outcome of the most recent completed sync.
func (s *Synchronizer) Connected() bool { return s.connected.Load() }

// LastUpdated returns when the view was last refreshed, zero if never.
func (s *Synchronizer) LastUpdated() time.Time {
	ns := s.lastUpdated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Sync fetches stats, cards and logs concurrently and renders them only if
// all three succeed. On failure the previous view is left in place, the
// connectivity state flips to disconnected and a single error notification
// is shown. A sync abandoned by its caller changes nothing and returns the
// context error. The last-card lookup rides along but its failure only blanks the
// last-card display.
func (s *Synchronizer) Sync(ctx context.Context) error {
	gen := s.started.Add(1)
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if gen < s.applied {
		syncTotal.WithLabelValues("superseded").Inc()
		s.log.Debug().Uint64("generation", gen).Uint64("applied", s.applied).Msg("sync superseded")
		return ErrSuperseded
	}

	var (
		stats *models.Stats
		cards []models.CardRecord
		logs  []models.AccessLogEntry
		last  *models.LastCard
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.api.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		cards, err = s.api.Cards(gctx)
		return err
	})
	g.Go(func() (err error) {
		logs, err = s.api.Logs(gctx)
		return err
	})
	g.Go(func() error {
		last = s.lastCard(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// The caller gave up; the device may be fine.
			syncTotal.WithLabelValues("cancelled").Inc()
			s.log.Debug().Err(err).Uint64("generation", gen).Msg("sync abandoned by caller")
			return fmt.Errorf("sync: %w", ctx.Err())
		}
		s.setConnected(false)
		syncTotal.WithLabelValues("failure").Inc()
		s.log.Error().Err(err).Uint64("generation", gen).Msg("sync failed")
		s.notify.Notify(LevelError, "Could not reach the device")
		return fmt.Errorf("sync: %w", err)
	}

	stats.LastCard = last
	s.view.RenderStats(*stats)
	s.view.RenderLastCard(last)
	s.view.RenderCards(cards)
	s.view.RenderLogs(logs)
	s.applied = gen

	now := s.clock.Now()
	s.lastUpdated.Store(now.UnixNano())
	s.setConnected(true)
	s.view.SetLastUpdated(now)
	syncTotal.WithLabelValues("success").Inc()
	s.log.Debug().
		Uint64("generation", gen).
		Int("cards", len(cards)).
		Int("logs", len(logs)).
		Msg("sync applied")
	return nil
}

// FetchLastCard looks up the most recently presented card on its own and
// renders it. Any failure renders "none" instead of failing.
func (s *Synchronizer) FetchLastCard(ctx context.Context) *models.LastCard {
	card := s.lastCard(ctx)
	s.view.RenderLastCard(card)
	return card
}

func (s *Synchronizer) lastCard(ctx context.Context) *models.LastCard {
	card, err := s.api.LastCard(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("last card lookup failed")
		return nil
	}
	return card
}

// RefreshLogs reloads only the access log. It shares Sync's turn so the two
// never render over each other, and leaves the connectivity state alone.
func (s *Synchronizer) RefreshLogs(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	logs, err := s.api.Logs(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("refresh logs: %w", ctx.Err())
		}
		s.log.Error().Err(err).Msg("log refresh failed")
		s.notify.Notify(LevelError, "Could not load the access log")
		return fmt.Errorf("refresh logs: %w", err)
	}
	s.view.RenderLogs(logs)
	return nil
}

func (s *Synchronizer) acquire(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) release() { <-s.turn }

func (s *Synchronizer) setConnected(connected bool) {
	s.connected.Store(connected)
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
	s.view.SetConnected(connected)
}
