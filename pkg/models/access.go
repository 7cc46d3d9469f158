package models

import "time"

// Action is the outcome recorded for a card presentation.
type Action string

const (
	ActionAccess Action = "ACCESS"
	ActionDenied Action = "DENIED"
)

// Granted reports whether the presentation opened the door.
func (a Action) Granted() bool { return a == ActionAccess }

// AccessLogEntry is one line of the device's append-only access log. UID is
// not guaranteed to reference a registered card.
type AccessLogEntry struct {
	Timestamp int64  `json:"timestamp"`
	UID       string `json:"uid"`
	Action    Action `json:"action"`
}

// Time returns Timestamp as a time, zero when the device had no clock.
func (e AccessLogEntry) Time() time.Time { return unixOrZero(e.Timestamp) }
