package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/org/rfidconsole/internal/device"
	"github.com/org/rfidconsole/pkg/models"
)

var errUnreachable = &device.Error{Kind: device.ErrNetwork, Op: "test", Err: errors.New("connection refused")}

// --- in-memory device ---

type fakeDevice struct {
	mu sync.Mutex

	stats models.Stats
	last  *models.LastCard
	cards []models.CardRecord
	logs  []models.AccessLogEntry

	statsErr, cardsErr, logsErr, lastErr error
	createErr, deleteErr, scanErr        error

	// scans is consumed front to back; an empty queue means "no card".
	scans []models.ScanResult

	// scanHook, if set, runs inside Scan before it answers.
	scanHook func()

	// statsGate, if set, holds Stats until it is closed or ctx ends.
	statsGate    chan struct{}
	statsEntered chan struct{}

	statsCalls, cardsCalls, logsCalls, scanCalls int
	created                                      []models.NewCard
	deleted                                      []string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		stats: models.Stats{TotalCards: 1, TotalAccesses: 5},
		cards: []models.CardRecord{{UID: "A1B2C3", Name: "Alice", AccessLevel: models.AccessIntermediate}},
		logs:  []models.AccessLogEntry{{Timestamp: 1700000000, UID: "A1B2C3", Action: models.ActionAccess}},
	}
}

func (d *fakeDevice) Stats(ctx context.Context) (*models.Stats, error) {
	d.mu.Lock()
	gate, entered := d.statsGate, d.statsEntered
	d.statsCalls++
	d.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &device.Error{Kind: device.ErrNetwork, Op: "stats", Err: ctx.Err()}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.statsErr != nil {
		return nil, d.statsErr
	}
	st := d.stats
	return &st, nil
}

func (d *fakeDevice) LastCard(ctx context.Context) (*models.LastCard, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.lastErr
}

func (d *fakeDevice) Cards(ctx context.Context) ([]models.CardRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cardsCalls++
	if d.cardsErr != nil {
		return nil, d.cardsErr
	}
	return append([]models.CardRecord(nil), d.cards...), nil
}

func (d *fakeDevice) Logs(ctx context.Context) ([]models.AccessLogEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logsCalls++
	if d.logsErr != nil {
		return nil, d.logsErr
	}
	return append([]models.AccessLogEntry(nil), d.logs...), nil
}

func (d *fakeDevice) Scan(ctx context.Context) (models.ScanResult, error) {
	d.mu.Lock()
	hook := d.scanHook
	d.scanCalls++
	d.mu.Unlock()
	if hook != nil {
		hook()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanErr != nil {
		return models.ScanResult{}, d.scanErr
	}
	if len(d.scans) == 0 {
		return models.ScanResult{}, nil
	}
	res := d.scans[0]
	d.scans = d.scans[1:]
	return res, nil
}

func (d *fakeDevice) CreateCard(ctx context.Context, card models.NewCard) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, card)
	if d.createErr != nil {
		return d.createErr
	}
	d.cards = append(d.cards, models.CardRecord{UID: card.UID, Name: card.Name, AccessLevel: card.AccessLevel})
	return nil
}

func (d *fakeDevice) DeleteCard(ctx context.Context, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, uid)
	return d.deleteErr
}

func (d *fakeDevice) scanCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanCalls
}

// --- UI collaborators ---

type recordingView struct {
	mu          sync.Mutex
	stats       *models.Stats
	last        *models.LastCard
	lastCalls   int
	cards       []models.CardRecord
	logs        []models.AccessLogEntry
	connected   []bool
	lastUpdated time.Time
}

func (v *recordingView) RenderStats(s models.Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = &s
}

func (v *recordingView) RenderLastCard(c *models.LastCard) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = c
	v.lastCalls++
}

func (v *recordingView) RenderCards(c []models.CardRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cards = c
}

func (v *recordingView) RenderLogs(l []models.AccessLogEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logs = l
}

func (v *recordingView) SetConnected(c bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = append(v.connected, c)
}

func (v *recordingView) SetLastUpdated(t time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastUpdated = t
}

type note struct {
	level   Level
	message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level, message})
}

func (n *recordingNotifier) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

type testField struct {
	mu       sync.Mutex
	value    string
	editable bool
	writes   []string
}

func newTestField() *testField { return &testField{editable: true} }

func (f *testField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *testField) SetValue(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	f.writes = append(f.writes, v)
}

func (f *testField) SetEditable(e bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editable = e
}

func (f *testField) isEditable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editable
}

func (f *testField) writesOf(v string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if w == v {
			n++
		}
	}
	return n
}

type testForm struct{ resets int }

func (f *testForm) Reset() { f.resets++ }

type testConfirmer struct {
	answer    bool
	err       error
	asked     int
	dismissed int
}

func (c *testConfirmer) Confirm(ctx context.Context, title, message string) (bool, error) {
	c.asked++
	return c.answer, c.err
}

func (c *testConfirmer) Dismiss() { c.dismissed++ }

type countingSyncer struct {
	calls int
	err   error
}

func (s *countingSyncer) Sync(ctx context.Context) error {
	s.calls++
	return s.err
}
