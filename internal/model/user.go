package model

import (
	"time"
)

// Role distinguishes administrators from regular accounts.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserStatus marks whether an account may run campaigns.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an account with a credit balance. One credit buys one search run;
// the credit is refunded when the search finds nothing. Identity is owned by
// the external identity provider; this record mirrors the billing state.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Plan        string     `json:"plan"`
	Credits     int        `json:"credits"`
	Status      UserStatus `json:"status"`
	CampaignIDs []string   `json:"campaign_ids,omitempty"` // newest first
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a copy with its own campaign ID slice.
func (u *User) Clone() *User {
	c := *u
	c.CampaignIDs = append([]string(nil), u.CampaignIDs...)
	return &c
}

// UpdateUserRequest is the admin request to edit an account.
type UpdateUserRequest struct {
	Name    *string     `json:"name,omitempty"`
	Email   *string     `json:"email,omitempty"`
	Plan    *string     `json:"plan,omitempty"`
	Credits *int        `json:"credits,omitempty"`
	Status  *UserStatus `json:"status,omitempty"`
}

// Plan is a purchasable credit package.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"` // display string, e.g. "79€"
	Credits  int      `json:"credits"`
	Features []string `json:"features,omitempty"`
}

// DefaultPlans seeds the catalog when the store starts empty.
func DefaultPlans() []Plan {
	return []Plan{
		{ID: "starter", Name: "Starter", Price: "29€", Credits: 30, Features: []string{"Basic diagnosis"}},
		{ID: "pro", Name: "Pro", Price: "79€", Credits: 150, Features: []string{"AI proposals", "Site generation"}},
		{ID: "agency", Name: "Agency", Price: "199€", Credits: 9999, Features: []string{"API access", "White-label"}},
	}
}
