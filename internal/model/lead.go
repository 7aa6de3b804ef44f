// Package model defines data structures for the lead prospecting platform.
package model

import (
	"strings"
	"time"
)

// Potential classifies a lead's sales readiness.
type Potential string

const (
	PotentialHot    Potential = "Hot"
	PotentialMedium Potential = "Medium"
	PotentialCold   Potential = "Cold"
)

// Valid reports whether p is one of the known tiers.
func (p Potential) Valid() bool {
	switch p {
	case PotentialHot, PotentialMedium, PotentialCold:
		return true
	}
	return false
}

// NonProfessionalDomains lists free-mail providers. An address on one of
// these domains is not counted as a professional business contact.
var NonProfessionalDomains = []string{
	"gmail.com", "hotmail.com", "outlook.com", "yahoo.com",
	"sapo.pt", "live.com.pt", "netcabo.pt",
}

// IsProfessionalEmail reports whether addr looks like a company address
// rather than a free-mail one. Empty addresses are not professional.
func IsProfessionalEmail(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 1 || at == len(addr)-1 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])
	for _, d := range NonProfessionalDomains {
		if domain == d {
			return false
		}
	}
	return true
}

// RawProspect is a partial lead record as returned by the search stage,
// before enrichment has validated it.
type RawProspect struct {
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Website     string `json:"website,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Storefront is the visual/operational assessment of a lead's physical
// premises, separate from its digital presence score.
type Storefront struct {
	Analyzed         bool   `json:"analyzed"`
	SignageCondition string `json:"signage_condition,omitempty"`
	VisualAppeal     string `json:"visual_appeal,omitempty"`
	NeedsLedUpgrade  bool   `json:"needs_led_upgrade,omitempty"`
	Description      string `json:"description,omitempty"`
	Address          string `json:"address,omitempty"`
}

// EmailDraftType identifies a step in the outreach sequence.
type EmailDraftType string

const (
	DraftIntro     EmailDraftType = "intro"
	DraftFollowUp1 EmailDraftType = "follow_up_1"
	DraftFollowUp2 EmailDraftType = "follow_up_2"
	DraftBreakup   EmailDraftType = "breakup"
)

// EmailDraft is one message of a generated outreach sequence.
type EmailDraft struct {
	ID      string         `json:"id"`
	Step    int            `json:"step"`
	Type    EmailDraftType `json:"type"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Status  string         `json:"status"` // draft, sent
}

// ChatRole tags a transcript message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a lead's Q&A transcript.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Lead is a prospective business enriched with firmographic,
// digital-presence and sales-readiness data. A lead belongs to exactly one
// campaign and is never deleted, only filtered out of views.
type Lead struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id,omitempty"`

	// Identity and contacts
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	Niche       string   `json:"niche,omitempty"`
	Website     string   `json:"website,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	AllPhones   []string `json:"all_phones,omitempty"`
	Socials     []string `json:"socials,omitempty"`

	// Registry enrichment
	NIF              string   `json:"nif,omitempty"`
	CAE              string   `json:"cae,omitempty"`
	SecondaryCAE     []string `json:"secondary_cae,omitempty"`
	BusinessActivity string   `json:"business_activity,omitempty"`
	FoundationYear   string   `json:"foundation_year,omitempty"`
	Employees        string   `json:"employees,omitempty"`
	BusinessHours    string   `json:"business_hours,omitempty"`
	ServicesOffered  []string `json:"services_offered,omitempty"`
	SocialSummary    string   `json:"social_summary,omitempty"`

	// Digital presence
	MapsRating  float64 `json:"maps_rating,omitempty"`
	MapsReviews int     `json:"maps_reviews,omitempty"`

	// Scoring
	HasWebsite        bool   `json:"has_website"`
	ProfessionalEmail bool   `json:"professional_email"`
	WebsiteScore      int    `json:"website_score"` // 0-10
	Diagnosis         string `json:"diagnosis,omitempty"`

	Potential          Potential `json:"potential"`
	PotentialReasoning string    `json:"potential_reasoning,omitempty"`

	Storefront Storefront `json:"storefront"`

	// On-demand artifacts
	ProposalText  string        `json:"proposal_text,omitempty"`
	SiteCode      string        `json:"site_code,omitempty"`
	EmailSequence []EmailDraft  `json:"email_sequence,omitempty"`
	ChatHistory   []ChatMessage `json:"chat_history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can hand leads across goroutines
// without sharing mutable slices.
func (l *Lead) Clone() *Lead {
	c := *l
	c.AllPhones = append([]string(nil), l.AllPhones...)
	c.Socials = append([]string(nil), l.Socials...)
	c.SecondaryCAE = append([]string(nil), l.SecondaryCAE...)
	c.ServicesOffered = append([]string(nil), l.ServicesOffered...)
	c.EmailSequence = append([]EmailDraft(nil), l.EmailSequence...)
	c.ChatHistory = append([]ChatMessage(nil), l.ChatHistory...)
	return &c
}

// LeadFilter holds the criteria for filtering a lead view.
// Zero values mean "no constraint".
type LeadFilter struct {
	Name      string    `json:"name,omitempty"`
	CAE       string    `json:"cae,omitempty"`
	Potential Potential `json:"potential,omitempty"`
}

// Matches applies the filter to a single lead: free-text name substring,
// registry-code substring, potential-tier equality.
func (f LeadFilter) Matches(l *Lead) bool {
	if f.Potential != "" && l.Potential != f.Potential {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(l.CompanyName), strings.ToLower(f.Name)) {
		return false
	}
	if f.CAE != "" && !strings.Contains(l.CAE, f.CAE) {
		return false
	}
	return true
}
