// Package console is the data-synchronization and scan-coordination engine
// behind the RFID access console. It mirrors the device's registry, access
// log and statistics into a Renderer, drives the card-enrollment scan loop,
// and issues registry mutations. Presentation is left to the collaborators
// declared in this file.
package console

import (
	"context"
	"time"

	"github.com/org/rfidconsole/pkg/models"
)

// Level classifies a user-visible notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a transient, dismissible message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Renderer receives the view-state produced by a successful sync.
type Renderer interface {
	RenderStats(stats models.Stats)
	RenderLastCard(card *models.LastCard) // nil renders as "none"
	RenderCards(cards []models.CardRecord)
	RenderLogs(logs []models.AccessLogEntry)
	SetConnected(connected bool)
	SetLastUpdated(t time.Time)
}

// Confirmer is a confirm-or-cancel dialog. Confirm blocks until the user
// answers or ctx ends. Dismiss hides the dialog and must be safe to call when
// it is already hidden.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
	Dismiss()
}

// Field is the manual UID entry control the scan loop writes into.
type Field interface {
	Value() string
	SetValue(v string)
	SetEditable(editable bool)
}

// Form is the enrollment form as a whole.
type Form interface {
	Reset()
}

// StaticConfirmer answers every prompt with its own value. It stands in for
// the dialog when the caller already collected consent (a --yes flag, a
// confirm=true query parameter).
type StaticConfirmer bool

func (c StaticConfirmer) Confirm(context.Context, string, string) (bool, error) { return bool(c), nil }
func (StaticConfirmer) Dismiss()                                                 {}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(Level, string) {}

// FormatDate renders a device timestamp as a date, "--" when unknown.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.Local().Format("2006-01-02")
}

// FormatDateTime renders a device timestamp with seconds, "--" when unknown.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
