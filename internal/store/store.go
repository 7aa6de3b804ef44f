// Package store holds the live working set in a single normalized form:
// one map per entity keyed by ID. Views (run progress, campaign detail,
// history) derive by lookup, never by independent copy, so one mutation
// path updates one location and every view observes it.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ecletika/leadscope/internal/model"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCredits is returned when a spend would go negative.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Store is the in-memory normalized entity store. All access is serialized
// through one RWMutex; entities are cloned at the boundary so callers never
// share mutable state with the store.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	campaigns map[string]*model.Campaign
	leads     map[string]*model.Lead
	plans     map[string]*model.Plan
}

// New creates an empty store seeded with the default plan catalog.
func New() *Store {
	s := &Store{
		users:     make(map[string]*model.User),
		campaigns: make(map[string]*model.Campaign),
		leads:     make(map[string]*model.Lead),
		plans:     make(map[string]*model.Plan),
	}
	for _, p := range model.DefaultPlans() {
		plan := p
		s.plans[plan.ID] = &plan
	}
	return s
}

// --- Users ---

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u.Clone()
}

// GetUser returns a copy of the user.
func (s *Store) GetUser(id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

// ListUsers returns copies of all users, ordered by name.
func (s *Store) ListUsers() []*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateUser applies fn to the user under the write lock. fn receives the
// live entity; returning an error aborts the update.
func (s *Store) UpdateUser(id string, fn func(*model.User) error) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return u.Clone(), nil
}

// SpendCredit atomically checks and decrements one credit.
func (s *Store) SpendCredit(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if u.Credits <= 0 {
		return ErrInsufficientCredits
	}
	u.Credits--
	u.UpdatedAt = time.Now()
	return nil
}

// RefundCredit returns one credit, used when a search finds nothing.
func (s *Store) RefundCredit(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Credits++
	u.UpdatedAt = time.Now()
	return nil
}

// --- Campaigns ---

// PutCampaign stores the campaign and prepends it to the owner's history.
func (s *Store) PutCampaign(c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[c.UserID]
	if !ok {
		return ErrNotFound
	}
	s.campaigns[c.ID] = c.Clone()
	u.CampaignIDs = append([]string{c.ID}, u.CampaignIDs...)
	u.UpdatedAt = time.Now()
	return nil
}

// RestoreCampaign inserts a campaign hydrated from the persisted copy.
// Unlike PutCampaign it leaves the owner's history order alone, which
// already references the campaign.
func (s *Store) RestoreCampaign(c *model.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c.Clone()
}

// GetCampaign returns a copy of the campaign.
func (s *Store) GetCampaign(id string) (*model.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// ListCampaigns returns the user's campaigns, newest first.
func (s *Store) ListCampaigns(userID string) ([]model.CampaignSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.CampaignSummary, 0, len(u.CampaignIDs))
	for _, id := range u.CampaignIDs {
		if c, ok := s.campaigns[id]; ok {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}

// --- Leads ---

// PutLead inserts or replaces a lead.
func (s *Store) PutLead(l *model.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = l.Clone()
}

// GetLead returns a copy of the lead.
func (s *Store) GetLead(id string) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

// UpdateLead applies fn to the lead under the write lock. This is the
// single mutation path: every view that shows the lead derives from the
// entity updated here.
func (s *Store) UpdateLead(id string, fn func(*model.Lead) error) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(l); err != nil {
		return nil, err
	}
	l.UpdatedAt = time.Now()
	return l.Clone(), nil
}

// Leads resolves IDs to lead copies, preserving order and skipping unknown
// IDs.
func (s *Store) Leads(ids []string) []*model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.leads[id]; ok {
			out = append(out, l.Clone())
		}
	}
	return out
}

// FilterLeads resolves IDs and applies the filter criteria.
func (s *Store) FilterLeads(ids []string, f model.LeadFilter) []*model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.leads[id]; ok && f.Matches(l) {
			out = append(out, l.Clone())
		}
	}
	return out
}

// --- Plans ---

// ListPlans returns the plan catalog ordered by credit size.
func (s *Store) ListPlans() []*model.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Credits < out[j].Credits })
	return out
}

// PutPlan inserts or replaces a plan.
func (s *Store) PutPlan(p *model.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.plans[cp.ID] = &cp
}

// DeletePlan removes a plan from the catalog.
func (s *Store) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[id]; !ok {
		return ErrNotFound
	}
	delete(s.plans, id)
	return nil
}
