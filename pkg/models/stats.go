package models

// Stats is the aggregate snapshot served by GET /api/stats. LastCard is filled
// separately from GET /api/last_card and stays nil when none is known.
type Stats struct {
	TotalCards    int64     `json:"total_cards"`
	TotalAccesses int64     `json:"total_accesses"`
	LastCard      *LastCard `json:"last_card,omitempty"`
}

// LastCard is the most recently presented card. Name, AccessLevel and
// AccessCount are only meaningful when the device knows the card.
type LastCard struct {
	UID         string      `json:"uid"`
	Name        string      `json:"name,omitempty"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	AccessCount int64       `json:"access_count,omitempty"`
}

// Label formats the card as "name (uid)", falling back to the uid when the
// device returned no name.
func (c *LastCard) Label() string {
	if c == nil || c.UID == "" {
		return "none"
	}
	name := c.Name
	if name == "" {
		name = c.UID
	}
	return name + " (" + c.UID + ")"
}

// ScanResult is the answer to a single GET /api/scan query.
type ScanResult struct {
	Detected bool   `json:"detected"`
	UID      string `json:"uid,omitempty"`
}
