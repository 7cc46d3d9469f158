package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/view"
)

type noteMsg struct {
	level console.Level
	text  string
}

type changedMsg struct{}

type confirmMsg struct {
	title   string
	message string
	answer  chan<- bool
}

type dismissMsg struct{}

// Bridge carries engine callbacks into the bubbletea program. It is the
// console.Notifier and console.Confirmer for the dashboard. Notifications
// and view changes never block the engine; when the program falls behind
// they are dropped.
type Bridge struct {
	msgs    chan tea.Msg
	changed chan struct{}
}

// NewBridge creates a Bridge and subscribes it to store.
func NewBridge(store *view.Store) *Bridge {
	b := &Bridge{
		msgs:    make(chan tea.Msg, 64),
		changed: make(chan struct{}, 1),
	}
	store.Subscribe(func(view.Change) {
		select {
		case b.changed <- struct{}{}:
		default:
			// a refresh is already pending
		}
	})
	return b
}

// Notify implements console.Notifier.
func (b *Bridge) Notify(level console.Level, message string) {
	select {
	case b.msgs <- noteMsg{level: level, text: message}:
	default:
	}
}

// Confirm implements console.Confirmer. It blocks until the operator
// answers in the dashboard or ctx ends.
func (b *Bridge) Confirm(ctx context.Context, title, message string) (bool, error) {
	answer := make(chan bool, 1)
	select {
	case b.msgs <- confirmMsg{title: title, message: message, answer: answer}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Dismiss implements console.Confirmer.
func (b *Bridge) Dismiss() {
	select {
	case b.msgs <- dismissMsg{}:
	default:
	}
}

// listen returns a tea.Cmd that blocks until the next engine message.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case m := <-b.msgs:
			return m
		case <-b.changed:
			return changedMsg{}
		}
	}
}

var (
	_ console.Notifier  = (*Bridge)(nil)
	_ console.Confirmer = (*Bridge)(nil)
)
