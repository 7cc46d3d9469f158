package device

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Client wraps exactly one of them.
var (
	// ErrNetwork covers transport failures and non-2xx replies.
	ErrNetwork = errors.New("device unreachable")
	// ErrMalformed means the reply could not be decoded.
	ErrMalformed = errors.New("malformed device response")
	// ErrRejected means the device answered 2xx but reported success=false.
	ErrRejected = errors.New("device rejected request")
)

// Error describes a failed call against the device API.
type Error struct {
	Kind    error
	Op      string // "stats", "cards", "create_card", ...
	Status  int    // HTTP status, 0 when no response arrived
	Message string // the device's own "message" field, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Status != 0 && e.Err == nil:
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the device-provided message carried by err, or fallback
// when there is none.
func Message(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
