package model

import (
	"time"
)

// Campaign is a named, timestamped batch of leads produced by one search
// run. Lead membership is immutable after creation; the leads themselves
// are updated in place through the store.
type Campaign struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Niche     string    `json:"niche"`
	CreatedAt time.Time `json:"created_at"`
	LeadIDs   []string  `json:"lead_ids"`
}

// Clone returns a copy with its own lead ID slice.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.LeadIDs = append([]string(nil), c.LeadIDs...)
	return &cp
}

// CampaignSummary is the list-view projection of a campaign.
type CampaignSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Niche     string    `json:"niche"`
	CreatedAt time.Time `json:"created_at"`
	LeadCount int       `json:"lead_count"`
}

// Summary projects the campaign for listing.
func (c *Campaign) Summary() CampaignSummary {
	return CampaignSummary{
		ID:        c.ID,
		Name:      c.Name,
		Location:  c.Location,
		Niche:     c.Niche,
		CreatedAt: c.CreatedAt,
		LeadCount: len(c.LeadIDs),
	}
}
