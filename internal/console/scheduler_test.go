package console

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type atomicSyncer struct{ calls atomic.Int32 }

func (s *atomicSyncer) Sync(ctx context.Context) error {
	s.calls.Add(1)
	return errUnreachable
}

func TestSchedulerSyncsImmediatelyAndSurvivesFailure(t *testing.T) {
	syncer := &atomicSyncer{}
	s := NewScheduler(syncer, time.Second, zerolog.Nop())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if syncer.calls.Load() != 1 {
		t.Fatalf("expected one sync at start, got %d", syncer.calls.Load())
	}
	if s.NextRun().IsZero() {
		t.Error("expected a next run to be scheduled")
	}

	deadline := time.Now().Add(5 * time.Second)
	for syncer.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if syncer.calls.Load() < 2 {
		t.Fatal("periodic sync did not run after a failed first cycle")
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := NewScheduler(&atomicSyncer{}, time.Hour, zerolog.Nop())
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	s.Stop()
	s.Stop()
}
