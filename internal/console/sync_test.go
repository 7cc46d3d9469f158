package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSynchronizer(dev *fakeDevice) (*Synchronizer, *recordingView, *recordingNotifier) {
	view := &recordingView{}
	notes := &recordingNotifier{}
	return NewSynchronizer(dev, view, notes, clock.Fake(epoch), zerolog.Nop()), view, notes
}

func TestSyncSuccessRendersAndConnects(t *testing.T) {
	dev := newFakeDevice()
	dev.last = &models.LastCard{UID: "A1B2C3", Name: "Alice"}
	s, view, notes := newTestSynchronizer(dev)

	if s.Connected() {
		t.Fatal("expected disconnected before the first sync")
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !s.Connected() {
		t.Error("expected connected after a successful sync")
	}
	if view.stats == nil || view.stats.TotalCards != 1 || view.stats.TotalAccesses != 5 {
		t.Errorf("unexpected stats %+v", view.stats)
	}
	if view.stats.LastCard == nil || view.stats.LastCard.UID != "A1B2C3" {
		t.Errorf("expected last card attached to stats, got %+v", view.stats.LastCard)
	}
	if view.last.Label() != "Alice (A1B2C3)" {
		t.Errorf("unexpected last card %q", view.last.Label())
	}
	if len(view.cards) != 1 || len(view.logs) != 1 {
		t.Errorf("expected 1 card and 1 log, got %d/%d", len(view.cards), len(view.logs))
	}
	if !view.lastUpdated.Equal(epoch) || !s.LastUpdated().Equal(epoch) {
		t.Errorf("expected last updated %v, got %v / %v", epoch, view.lastUpdated, s.LastUpdated())
	}
	if len(notes.all()) != 0 {
		t.Errorf("expected no notifications, got %+v", notes.all())
	}
}

func TestSyncFailureKeepsPreviousView(t *testing.T) {
	failures := map[string]func(*fakeDevice){
		"stats": func(d *fakeDevice) { d.statsErr = errUnreachable },
		"cards": func(d *fakeDevice) { d.cardsErr = errUnreachable },
		"logs":  func(d *fakeDevice) { d.logsErr = errUnreachable },
	}
	for name, breakIt := range failures {
		t.Run(name, func(t *testing.T) {
			dev := newFakeDevice()
			s, view, notes := newTestSynchronizer(dev)
			if err := s.Sync(context.Background()); err != nil {
				t.Fatalf("first Sync: %v", err)
			}
			before := view.cards

			dev.mu.Lock()
			dev.cards = append(dev.cards, models.CardRecord{UID: "FFFF", Name: "Bob"})
			dev.logs = nil
			breakIt(dev)
			dev.mu.Unlock()

			err := s.Sync(context.Background())
			if !errors.Is(err, errUnreachable) {
				t.Fatalf("expected the device error, got %v", err)
			}
			if s.Connected() {
				t.Error("expected disconnected after a failed sync")
			}
			if got := view.connected[len(view.connected)-1]; got {
				t.Error("renderer still shows connected")
			}
			if len(view.cards) != len(before) || len(view.logs) != 1 {
				t.Errorf("previous view overwritten: %d cards, %d logs", len(view.cards), len(view.logs))
			}
			got := notes.all()
			if len(got) != 1 || got[0].level != LevelError {
				t.Errorf("expected exactly one error notification, got %+v", got)
			}
		})
	}
}

func TestSyncRecoversOnNextTick(t *testing.T) {
	dev := newFakeDevice()
	dev.statsErr = errUnreachable
	s, _, _ := newTestSynchronizer(dev)

	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	dev.mu.Lock()
	dev.statsErr = nil
	dev.mu.Unlock()
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if !s.Connected() {
		t.Error("expected connected again")
	}
}

func TestSyncLastCardFailureDegradesToNone(t *testing.T) {
	dev := newFakeDevice()
	dev.last = &models.LastCard{UID: "A1B2C3"}
	dev.lastErr = errUnreachable
	s, view, notes := newTestSynchronizer(dev)

	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !s.Connected() {
		t.Error("last-card failure must not fail the sync")
	}
	if view.last != nil || view.lastCalls != 1 {
		t.Errorf("expected last card rendered once as none, got %+v (%d calls)", view.last, view.lastCalls)
	}
	if len(notes.all()) != 0 {
		t.Errorf("expected no notification, got %+v", notes.all())
	}
}

func TestFetchLastCard(t *testing.T) {
	dev := newFakeDevice()
	dev.last = &models.LastCard{UID: "0A0B"}
	s, view, _ := newTestSynchronizer(dev)

	card := s.FetchLastCard(context.Background())
	if card == nil || card.Label() != "0A0B (0A0B)" {
		t.Fatalf("unexpected card %+v", card)
	}
	if view.last != card {
		t.Error("expected the card to be rendered")
	}

	dev.mu.Lock()
	dev.lastErr = errUnreachable
	dev.mu.Unlock()
	if card := s.FetchLastCard(context.Background()); card != nil {
		t.Errorf("expected nil on failure, got %+v", card)
	}
	if view.last != nil {
		t.Error("expected none rendered on failure")
	}
}

func TestSyncCallsAreSerialized(t *testing.T) {
	dev := newFakeDevice()
	dev.statsGate = make(chan struct{})
	dev.statsEntered = make(chan struct{}, 4)
	s, _, _ := newTestSynchronizer(dev)

	first := make(chan error, 1)
	go func() { first <- s.Sync(context.Background()) }()
	<-dev.statsEntered

	second := make(chan error, 1)
	go func() { second <- s.Sync(context.Background()) }()

	// The second call must not reach the device while the first holds
	// the turn.
	select {
	case <-dev.statsEntered:
		t.Fatal("second sync ran concurrently with the first")
	case <-time.After(50 * time.Millisecond):
	}

	close(dev.statsGate)
	if err := <-first; err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.statsCalls != 2 {
		t.Errorf("expected 2 stats calls, got %d", dev.statsCalls)
	}
}

func TestSyncAbandonedByCallerKeepsConnectivity(t *testing.T) {
	dev := newFakeDevice()
	s, view, notes := newTestSynchronizer(dev)
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	dev.mu.Lock()
	dev.statsGate = make(chan struct{})
	dev.statsEntered = make(chan struct{}, 1)
	dev.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Sync(ctx) }()
	<-dev.statsEntered
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !s.Connected() {
		t.Error("a cancelled caller must not mark the device disconnected")
	}
	if n := len(notes.all()); n != 0 {
		t.Errorf("expected no notifications, got %+v", notes.all())
	}
	view.mu.Lock()
	defer view.mu.Unlock()
	if len(view.connected) != 1 || !view.connected[0] {
		t.Errorf("expected connectivity rendered once as connected, got %v", view.connected)
	}
}

func TestSyncOlderGenerationIsDiscarded(t *testing.T) {
	dev := newFakeDevice()
	s, view, _ := newTestSynchronizer(dev)

	// A call started before the one whose results are on screen must
	// not overwrite them.
	s.applied = 3
	s.started.Store(1)

	if err := s.Sync(context.Background()); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if view.stats != nil || dev.statsCalls != 0 {
		t.Error("superseded sync reached the device or the view")
	}
}

func TestSyncGivesUpWaitingWhenContextEnds(t *testing.T) {
	s, _, _ := newTestSynchronizer(newFakeDevice())
	s.turn <- struct{}{}
	defer s.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Sync(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRefreshLogs(t *testing.T) {
	dev := newFakeDevice()
	s, view, notes := newTestSynchronizer(dev)

	if err := s.RefreshLogs(context.Background()); err != nil {
		t.Fatalf("RefreshLogs: %v", err)
	}
	if len(view.logs) != 1 {
		t.Errorf("expected logs rendered, got %d", len(view.logs))
	}

	dev.mu.Lock()
	dev.logsErr = errUnreachable
	dev.mu.Unlock()
	if err := s.RefreshLogs(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if len(view.connected) != 0 {
		t.Error("log refresh must not touch connectivity")
	}
	if got := notes.all(); len(got) != 1 || got[0].level != LevelError {
		t.Errorf("expected one error notification, got %+v", got)
	}
}
