package console

import (
	"context"
	"sync"
	"time"

	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
)

// WaitingPlaceholder is written into the UID field while a scan is armed.
const WaitingPlaceholder = "Waiting for card..."

// DefaultScanInterval is the pause between two scan polls.
const DefaultScanInterval = time.Second

// Scanner is the single-shot "has a card been presented" query.
type Scanner interface {
	Scan(ctx context.Context) (models.ScanResult, error)
}

// ScanState is the coordinator's externally visible state.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanArmed
)

func (s ScanState) String() string {
	if s == ScanArmed {
		return "armed"
	}
	return "idle"
}

// ScanOutcome is how a scan session ended.
type ScanOutcome int

const (
	OutcomePending ScanOutcome = iota
	OutcomeDetected
	OutcomeCancelled
	OutcomeExpired
)

func (o ScanOutcome) String() string {
	switch o {
	case OutcomeDetected:
		return "detected"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeExpired:
		return "expired"
	default:
		return "pending"
	}
}

// ScanConfig tunes the poll loop. A zero Timeout lets a session poll until
// a card shows up or it is cancelled.
type ScanConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// ScanSession is one armed polling loop. It is owned by the coordinator that
// created it; callers only observe it.
type ScanSession struct {
	id       uint64
	field    Field
	ctx      context.Context
	cancel   context.CancelFunc
	detach   func() bool // unregisters the parent-context watcher
	deadline time.Time
	timer    clock.Timer // the single pending poll, nil while a poll runs
	done     chan struct{}

	mu      sync.Mutex
	outcome ScanOutcome
	uid     string
}

// ID identifies the session within its coordinator.
func (s *ScanSession) ID() uint64 { return s.id }

// Done is closed when the session reaches a terminal outcome.
func (s *ScanSession) Done() <-chan struct{} { return s.done }

// Result returns the outcome so far and, for OutcomeDetected, the UID.
func (s *ScanSession) Result() (ScanOutcome, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.uid
}

// Wait blocks until the session ends or ctx is done.
func (s *ScanSession) Wait(ctx context.Context) (ScanOutcome, string, error) {
	select {
	case <-s.done:
		o, uid := s.Result()
		return o, uid, nil
	case <-ctx.Done():
		return OutcomePending, "", ctx.Err()
	}
}

// ScanCoordinator runs at most one ScanSession at a time. Field, Notifier
// and the state-change hook are called with the coordinator's lock held and
// must not call back into it.
type ScanCoordinator struct {
	api      Scanner
	notify   Notifier
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	session  *ScanSession
	nextID   uint64
	onChange func(ScanState)
}

// NewScanCoordinator creates an idle coordinator.
func NewScanCoordinator(api Scanner, notify Notifier, clk clock.Clock, cfg ScanConfig, logger zerolog.Logger) *ScanCoordinator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &ScanCoordinator{
		api:      api,
		notify:   notify,
		clock:    clk,
		interval: interval,
		timeout:  max(cfg.Timeout, 0),
		log:      logger.With().Str("component", "scan").Logger(),
	}
}

// OnStateChange registers fn to be told about every Idle/Armed transition.
func (c *ScanCoordinator) OnStateChange(fn func(ScanState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State reports whether a session is armed.
func (c *ScanCoordinator) State() ScanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return ScanArmed
	}
	return ScanIdle
}

// Session returns the armed session, or nil when idle.
func (c *ScanCoordinator) Session() *ScanSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Toggle arms a new session when idle and cancels the current one when
// armed. It returns the new session, or nil if it cancelled.
func (c *ScanCoordinator) Toggle(ctx context.Context, field Field) *ScanSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.finishLocked(c.session, OutcomeCancelled, "")
		return nil
	}
	return c.armLocked(ctx, field)
}

// Arm starts polling for a card on behalf of field. A session that is
// already armed is cancelled first. The session also ends, as cancelled,
// when ctx is done.
func (c *ScanCoordinator) Arm(ctx context.Context, field Field) *ScanSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.finishLocked(c.session, OutcomeCancelled, "")
	}
	return c.armLocked(ctx, field)
}

// Cancel ends the armed session, if any. After Cancel returns no further
// poll runs and no poll result is applied.
func (c *ScanCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.finishLocked(c.session, OutcomeCancelled, "")
	}
}

func (c *ScanCoordinator) armLocked(ctx context.Context, field Field) *ScanSession {
	c.nextID++
	sctx, cancel := context.WithCancel(ctx)
	sess := &ScanSession{
		id:     c.nextID,
		field:  field,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if c.timeout > 0 {
		sess.deadline = c.clock.Now().Add(c.timeout)
	}
	sess.detach = context.AfterFunc(ctx, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session == sess {
			c.finishLocked(sess, OutcomeCancelled, "")
		}
	})
	c.session = sess

	field.SetEditable(false)
	field.SetValue(WaitingPlaceholder)
	c.notify.Notify(LevelInfo, "Present an RFID card to the reader")
	c.scheduleLocked(sess)
	c.log.Debug().Uint64("session", sess.id).Dur("interval", c.interval).Msg("scan armed")
	c.changedLocked(ScanArmed)
	return sess
}

func (c *ScanCoordinator) scheduleLocked(sess *ScanSession) {
	sess.timer = c.clock.AfterFunc(c.interval, func() { c.poll(sess) })
}

// poll runs one scan query for sess and either finishes the session or
// schedules the next poll. Errors keep the session armed.
func (c *ScanCoordinator) poll(sess *ScanSession) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	sess.timer = nil
	if !sess.deadline.IsZero() && !c.clock.Now().Before(sess.deadline) {
		c.finishLocked(sess, OutcomeExpired, "")
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	res, err := c.api.Scan(sess.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		// Cancelled or replaced while the query was in flight.
		return
	}
	switch {
	case err != nil:
		scanPollsTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Uint64("session", sess.id).Msg("scan poll failed")
		c.scheduleLocked(sess)
	case res.Detected:
		scanPollsTotal.WithLabelValues("detected").Inc()
		c.finishLocked(sess, OutcomeDetected, res.UID)
	default:
		scanPollsTotal.WithLabelValues("empty").Inc()
		c.scheduleLocked(sess)
	}
}

// finishLocked moves sess to a terminal outcome and the coordinator back to
// idle.
func (c *ScanCoordinator) finishLocked(sess *ScanSession, outcome ScanOutcome, uid string) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.cancel()
	sess.detach()
	c.session = nil

	switch outcome {
	case OutcomeDetected:
		sess.field.SetValue(uid)
		sess.field.SetEditable(true)
		c.notify.Notify(LevelSuccess, "Card detected: "+uid)
	case OutcomeExpired:
		sess.field.SetValue("")
		sess.field.SetEditable(true)
		c.notify.Notify(LevelWarning, "Scan expired before a card was presented")
	default:
		sess.field.SetValue("")
		sess.field.SetEditable(true)
	}

	sess.mu.Lock()
	sess.outcome = outcome
	sess.uid = uid
	sess.mu.Unlock()
	close(sess.done)

	scanSessionsTotal.WithLabelValues(outcome.String()).Inc()
	c.log.Debug().Uint64("session", sess.id).Stringer("outcome", outcome).Msg("scan finished")
	c.changedLocked(ScanIdle)
}

func (c *ScanCoordinator) changedLocked(state ScanState) {
	if c.onChange != nil {
		c.onChange(state)
	}
}
