package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is one escalation step: after DelayMinutes the listed channel types are
// notified. Tier numbers are unique within a profile and define the sequence.
type Tier struct {
	TierNumber             int      `json:"tier_number"`
	DelayMinutes           int      `json:"delay_minutes"`
	Channels               []string `json:"channels"`
	IncludeTrustedContacts bool     `json:"include_trusted_contacts"`
	Message                string   `json:"message,omitempty"`
}

// EscalationProfile is a named, ordered set of tiers. A nil UserID marks a
// shared preset owned by no one.
type EscalationProfile struct {
	ID        uuid.UUID `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Tiers     []Tier    `json:"tiers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TierByNumber returns the tier with the given number, or false when the
// profile defines no such tier.
func (p EscalationProfile) TierByNumber(n int) (Tier, bool) {
	for _, t := range p.Tiers {
		if t.TierNumber == n {
			return t, true
		}
	}
	return Tier{}, false
}
