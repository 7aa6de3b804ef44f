package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecletika/leadscope/internal/model"
)

// Archive is the write-behind persistence facade used by the pipeline and
// the lead services. It groups the repositories so callers persist a whole
// unit of work in one call.
type Archive struct {
	Users     *UserRepository
	Campaigns *CampaignRepository
	Leads     *LeadRepository
}

// NewArchive wires the repositories over one connection pool.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{
		Users:     &UserRepository{DB: db},
		Campaigns: &CampaignRepository{DB: db},
		Leads:     &LeadRepository{DB: db},
	}
}

// SaveCampaign persists a finished run: the campaign, its leads, and the
// owner's updated balance and history order.
func (a *Archive) SaveCampaign(ctx context.Context, user *model.User, campaign *model.Campaign, leads []*model.Lead) error {
	if err := a.Campaigns.Insert(ctx, campaign); err != nil {
		return fmt.Errorf("save campaign: %w", err)
	}
	for _, l := range leads {
		if err := a.Leads.Upsert(ctx, l); err != nil {
			return fmt.Errorf("save lead %s: %w", l.ID, err)
		}
	}
	if err := a.Users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// SaveLead persists a single lead mutation (on-demand action result).
func (a *Archive) SaveLead(ctx context.Context, lead *model.Lead) error {
	return a.Leads.Upsert(ctx, lead)
}

// SaveUser persists a user's billing state.
func (a *Archive) SaveUser(ctx context.Context, user *model.User) error {
	return a.Users.Upsert(ctx, user)
}
