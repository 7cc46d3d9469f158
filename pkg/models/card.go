package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Device-side field limits. The firmware stores both as fixed-size C strings,
// so one byte of each buffer is taken by the terminator.
const (
	MaxUIDLength  = 31
	MaxNameLength = 63
)

// ErrInvalidCard is returned by NewCard.Validate. The wrapped message names
// the offending field.
var ErrInvalidCard = errors.New("invalid card")

// AccessLevel is the privilege tier attached to a card.
type AccessLevel int

const (
	AccessBasic         AccessLevel = 1
	AccessIntermediate  AccessLevel = 2
	AccessAdministrator AccessLevel = 3
)

// Valid reports whether l is one of the three known tiers.
func (l AccessLevel) Valid() bool {
	return l >= AccessBasic && l <= AccessAdministrator
}

// String returns the display label. Unknown levels are shown as Basic, which
// is what the device assumes for them too.
func (l AccessLevel) String() string {
	switch l {
	case AccessIntermediate:
		return "Intermediate"
	case AccessAdministrator:
		return "Administrator"
	default:
		return "Basic"
	}
}

// ParseAccessLevel accepts either the numeric tier or its label.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "basic":
		return AccessBasic, nil
	case "2", "intermediate":
		return AccessIntermediate, nil
	case "3", "administrator", "admin":
		return AccessAdministrator, nil
	}
	return 0, fmt.Errorf("%w: unknown access level %q", ErrInvalidCard, s)
}

// CardRecord is one entry of the device's card registry.
type CardRecord struct {
	UID         string      `json:"uid"`
	Name        string      `json:"name"`
	AccessLevel AccessLevel `json:"access_level"`
	FirstSeen   int64       `json:"first_seen"`
	LastSeen    int64       `json:"last_seen"`
	AccessCount int64       `json:"access_count"`
}

// FirstSeenTime returns FirstSeen as a time. The zero time means the device
// never recorded it.
func (c CardRecord) FirstSeenTime() time.Time { return unixOrZero(c.FirstSeen) }

// LastSeenTime returns LastSeen as a time, zero when unknown.
func (c CardRecord) LastSeenTime() time.Time { return unixOrZero(c.LastSeen) }

// NewCard is the enrollment request sent to POST /api/cards.
type NewCard struct {
	UID         string      `json:"uid"`
	Name        string      `json:"name"`
	AccessLevel AccessLevel `json:"access_level"`
}

// Normalize trims surrounding whitespace from the text fields.
func (n NewCard) Normalize() NewCard {
	n.UID = strings.TrimSpace(n.UID)
	n.Name = strings.TrimSpace(n.Name)
	return n
}

// Validate checks the request against the device's constraints. It does not
// trim; call Normalize first.
func (n NewCard) Validate() error {
	switch {
	case n.UID == "" || n.Name == "":
		return fmt.Errorf("%w: uid and name are required", ErrInvalidCard)
	case len(n.UID) > MaxUIDLength:
		return fmt.Errorf("%w: uid longer than %d bytes", ErrInvalidCard, MaxUIDLength)
	case len(n.Name) > MaxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidCard, MaxNameLength)
	case !n.AccessLevel.Valid():
		return fmt.Errorf("%w: access level must be 1, 2 or 3", ErrInvalidCard)
	}
	return nil
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
