package events

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of websocket message.
type MessageType string

const (
	TypeNotification     MessageType = "notification"
	TypeStateUpdated     MessageType = "state.updated"
	TypeScanStateChanged MessageType = "scan.state_changed"
	TypeModalDismissed   MessageType = "modal.dismissed"
)

// Message is the websocket envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(t MessageType, payload any) Message {
	return Message{Type: t, Timestamp: time.Now().UTC(), Payload: payload}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	ID          string `json:"id"`
	Level       string `json:"level"` // info, success, warning, error
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// StatePayload tells clients which part of the view to re-fetch.
type StatePayload struct {
	Change string `json:"change"`
}

// ScanStatePayload is the payload for scan.state_changed events.
type ScanStatePayload struct {
	State string `json:"state"` // idle, armed
}

// ModalPayload is the payload for modal.dismissed events.
type ModalPayload struct {
	Modal string `json:"modal"`
}
