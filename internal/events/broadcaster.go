package events

import (
	"context"

	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/journal"
	"github.com/org/rfidconsole/internal/view"
	"github.com/rs/zerolog"
)

// Broadcaster encodes console events and hands them to the Hub.
type Broadcaster struct {
	hub *Hub
	log zerolog.Logger
}

// NewBroadcaster creates a Broadcaster for hub.
func NewBroadcaster(hub *Hub, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, log: logger}
}

// Notification sends a recorded notification.
func (b *Broadcaster) Notification(e journal.Entry) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		ID:          e.ID,
		Level:       e.Level,
		Message:     e.Message,
		Dismissible: true,
	}))
}

// StateUpdated is a view.Store listener.
func (b *Broadcaster) StateUpdated(c view.Change) {
	b.broadcast(NewMessage(TypeStateUpdated, StatePayload{Change: string(c)}))
}

// ScanStateChanged is a console.ScanCoordinator state hook.
func (b *Broadcaster) ScanStateChanged(s console.ScanState) {
	b.broadcast(NewMessage(TypeScanStateChanged, ScanStatePayload{State: s.String()}))
}

// ModalDismissed tells clients to close the named dialog.
func (b *Broadcaster) ModalDismissed(modal string) {
	b.broadcast(NewMessage(TypeModalDismissed, ModalPayload{Modal: modal}))
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error().Err(err).Str("type", string(msg.Type)).Msg("encode event")
		return
	}
	b.hub.Broadcast(data)
}

// Notifier is the console.Notifier for the server: every notification is
// logged, kept in the journal and pushed to connected clients.
type Notifier struct {
	journal *journal.Journal
	out     *Broadcaster
	log     zerolog.Logger
}

// NewNotifier wires a Notifier. out may be nil.
func NewNotifier(j *journal.Journal, out *Broadcaster, logger zerolog.Logger) *Notifier {
	return &Notifier{journal: j, out: out, log: logger.With().Str("component", "notify").Logger()}
}

// Notify implements console.Notifier.
func (n *Notifier) Notify(level console.Level, message string) {
	e := n.journal.Record(string(level), message)
	n.log.WithLevel(zerologLevel(level)).Str("id", e.ID).Msg(message)
	if n.out != nil {
		n.out.Notification(e)
	}
}

func zerologLevel(l console.Level) zerolog.Level {
	switch l {
	case console.LevelError:
		return zerolog.ErrorLevel
	case console.LevelWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

var _ console.Notifier = (*Notifier)(nil)

// AnsweredConfirmer is a console.Confirmer for clients that collect the
// user's answer before calling the server. Dismiss closes the dialog on
// every connected client.
type AnsweredConfirmer struct {
	Answer bool
	Out    *Broadcaster
}

func (c AnsweredConfirmer) Confirm(context.Context, string, string) (bool, error) {
	return c.Answer, nil
}

func (c AnsweredConfirmer) Dismiss() {
	if c.Out != nil {
		c.Out.ModalDismissed("delete-card")
	}
}

var _ console.Confirmer = AnsweredConfirmer{}
