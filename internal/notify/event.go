package notify

import (
	"time"

	"accesshub/internal/domain"
)

// Event describes one committed grant transition. It is produced strictly
// after the store commit and ledger append, and carries everything a
// downstream notifier (mail sender, chat hook, SIEM) needs to render a
// message without calling back into the engine.
type Event struct {
	UserID        int           `json:"utilisateur_id"`
	UserName      string        `json:"utilisateur_nom,omitempty"`
	UserEmail     string        `json:"utilisateur_email,omitempty"`
	ApplicationID int           `json:"application_id"`
	Application   string        `json:"application_nom,omitempty"`
	Action        domain.Action `json:"action"`
	OldLevel      domain.Level  `json:"old_level,omitempty"`
	NewLevel      domain.Level  `json:"new_level,omitempty"`
	ActorID       int           `json:"performed_by"`
	Device        string        `json:"device,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
