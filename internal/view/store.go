// Package view holds the console's renderable state: the latest synced
// registry, log and stats, the connectivity flag, and the enrollment form.
// Store implements the console package's Renderer, Field and Form so one
// value can back any front end.
package view

import (
	"sync"
	"time"

	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/pkg/models"
)

// Change names the part of the state that was updated.
type Change string

const (
	ChangeStats        Change = "stats"
	ChangeCards        Change = "cards"
	ChangeLogs         Change = "logs"
	ChangeConnectivity Change = "connectivity"
	ChangeEnrollment   Change = "enrollment"
)

// CardRow is a CardRecord with its display strings.
type CardRow struct {
	models.CardRecord
	LevelLabel    string `json:"level_label"`
	FirstSeenText string `json:"first_seen_text"`
	LastSeenText  string `json:"last_seen_text"`
}

// LogRow is an AccessLogEntry with its display strings.
type LogRow struct {
	models.AccessLogEntry
	TimeText string `json:"time_text"`
	Granted  bool   `json:"granted"`
}

// Enrollment is the state of the enrollment form's UID field.
type Enrollment struct {
	UID      string `json:"uid"`
	Editable bool   `json:"editable"`
}

// Snapshot is a copy of the whole view.
type Snapshot struct {
	Stats         models.Stats     `json:"stats"`
	LastCard      *models.LastCard `json:"last_card"`
	LastCardLabel string           `json:"last_card_label"`
	Cards         []CardRow        `json:"cards"`
	Logs          []LogRow         `json:"logs"`
	Connected     bool             `json:"connected"`
	LastUpdated   time.Time        `json:"last_updated"`
	Enrollment    Enrollment       `json:"enrollment"`
}

// Store is safe for concurrent use. Listeners run after the store's lock
// is released, on the goroutine that made the change.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Change)
}

// NewStore returns an empty, disconnected view with an editable form.
func NewStore() *Store {
	return &Store{snap: Snapshot{
		LastCardLabel: "none",
		Cards:         []CardRow{},
		Logs:          []LogRow{},
		Enrollment:    Enrollment{Editable: true},
	}}
}

// Subscribe registers fn to be called after every change.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Cards = append([]CardRow(nil), s.snap.Cards...)
	snap.Logs = append([]LogRow(nil), s.snap.Logs...)
	if s.snap.LastCard != nil {
		c := *s.snap.LastCard
		snap.LastCard = &c
	}
	return snap
}

func (s *Store) update(change Change, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	listeners := s.listeners
	s.mu.Unlock()
	for _, l := range listeners {
		l(change)
	}
}

// RenderStats implements console.Renderer.
func (s *Store) RenderStats(stats models.Stats) {
	s.update(ChangeStats, func(snap *Snapshot) {
		snap.Stats = stats
	})
}

// RenderLastCard implements console.Renderer.
func (s *Store) RenderLastCard(card *models.LastCard) {
	s.update(ChangeStats, func(snap *Snapshot) {
		snap.LastCard = card
		snap.LastCardLabel = card.Label()
	})
}

// RenderCards implements console.Renderer.
func (s *Store) RenderCards(cards []models.CardRecord) {
	rows := make([]CardRow, len(cards))
	for i, c := range cards {
		rows[i] = CardRow{
			CardRecord:    c,
			LevelLabel:    c.AccessLevel.String(),
			FirstSeenText: console.FormatDate(c.FirstSeenTime()),
			LastSeenText:  console.FormatDate(c.LastSeenTime()),
		}
	}
	s.update(ChangeCards, func(snap *Snapshot) {
		snap.Cards = rows
	})
}

// RenderLogs implements console.Renderer.
func (s *Store) RenderLogs(logs []models.AccessLogEntry) {
	rows := make([]LogRow, len(logs))
	for i, l := range logs {
		rows[i] = LogRow{
			AccessLogEntry: l,
			TimeText:       console.FormatDateTime(l.Time()),
			Granted:        l.Action.Granted(),
		}
	}
	s.update(ChangeLogs, func(snap *Snapshot) {
		snap.Logs = rows
	})
}

// SetConnected implements console.Renderer.
func (s *Store) SetConnected(connected bool) {
	s.update(ChangeConnectivity, func(snap *Snapshot) {
		snap.Connected = connected
	})
}

// SetLastUpdated implements console.Renderer.
func (s *Store) SetLastUpdated(t time.Time) {
	s.update(ChangeConnectivity, func(snap *Snapshot) {
		snap.LastUpdated = t
	})
}

// Value implements console.Field for the enrollment UID.
func (s *Store) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Enrollment.UID
}

// SetValue implements console.Field.
func (s *Store) SetValue(v string) {
	s.update(ChangeEnrollment, func(snap *Snapshot) {
		snap.Enrollment.UID = v
	})
}

// SetEditable implements console.Field.
func (s *Store) SetEditable(editable bool) {
	s.update(ChangeEnrollment, func(snap *Snapshot) {
		snap.Enrollment.Editable = editable
	})
}

// Reset implements console.Form: the UID is cleared and manual entry
// re-enabled.
func (s *Store) Reset() {
	s.update(ChangeEnrollment, func(snap *Snapshot) {
		snap.Enrollment = Enrollment{Editable: true}
	})
}

var (
	_ console.Renderer = (*Store)(nil)
	_ console.Field    = (*Store)(nil)
	_ console.Form     = (*Store)(nil)
)
