package domain

import (
	"fmt"
	"time"
)

// Level is the access tier a user holds over an application. Levels form a
// fixed, totally ordered enumeration; LevelNone is a sentinel meaning "no
// grant row exists" and is never persisted.
type Level string

const (
	LevelNone  Level = "none"
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelAdmin Level = "admin"
)

// levelRanks orders the enumeration for comparisons and validation.
var levelRanks = map[Level]int{
	LevelNone:  0,
	LevelRead:  1,
	LevelWrite: 2,
	LevelAdmin: 3,
}

// ParseLevel validates a wire-format access level.
func ParseLevel(s string) (Level, error) {
	level := Level(s)
	if _, ok := levelRanks[level]; !ok {
		return "", fmt.Errorf("invalid access level %q: allowed values are none, read, write, admin", s)
	}
	return level, nil
}

// Valid reports whether the level is one of the four known values.
func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Rank returns the position of the level in the ordered enumeration.
func (l Level) Rank() int {
	return levelRanks[l]
}

func (l Level) String() string { return string(l) }

// Action classifies a grant transition for the audit ledger.
type Action string

const (
	ActionGranted  Action = "granted"
	ActionRevoked  Action = "revoked"
	ActionModified Action = "modified"
)

// Grant is the current-state record of a user's access level over an
// application. At most one grant exists per (user, application) pair; a
// level of none is represented by the absence of the record.
//
// JSON tags match the original portal's file and wire format.
type Grant struct {
	UserID        int       `json:"utilisateur_id"`
	ApplicationID int       `json:"application_id"`
	Level         Level     `json:"access_level"`
	GrantedBy     int       `json:"granted_by"`
	GrantedAt     time.Time `json:"granted_at"`
	LastModified  time.Time `json:"last_modified"`
}

// HistoryEntry is one append-only audit record of a grant transition.
type HistoryEntry struct {
	ID            string    `json:"id"`
	UserID        int       `json:"utilisateur_id"`
	ApplicationID int       `json:"application_id"`
	Action        Action    `json:"action"`
	OldLevel      Level     `json:"old_level,omitempty"`
	NewLevel      Level     `json:"new_level,omitempty"`
	PerformedBy   int       `json:"performed_by"`
	PerformedAt   time.Time `json:"performed_at"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
}

// Origin captures where an administrative action came from. It is recorded
// on audit entries and forwarded to notifications.
type Origin struct {
	IPAddress string
	UserAgent string
}
