package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
)

// CampaignRepository reads and writes campaign rows. Lead membership is
// immutable after insert, so there is no update path.
type CampaignRepository struct {
	DB *sql.DB
}

// Insert writes a newly completed campaign.
func (r *CampaignRepository) Insert(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (id, user_id, name, location, niche, lead_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Location, c.Niche, pq.Array(c.LeadIDs), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// FindByID loads one campaign.
func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `
		SELECT id, user_id, name, location, niche, lead_ids, created_at
		FROM campaigns
		WHERE id = $1
	`

	c := &model.Campaign{}
	var leadIDs pq.StringArray
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Location, &c.Niche, &leadIDs, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find campaign: %w", err)
	}
	c.LeadIDs = leadIDs
	return c, nil
}

// FindByUser loads a user's campaigns, newest first.
func (r *CampaignRepository) FindByUser(ctx context.Context, userID string) ([]*model.Campaign, error) {
	query := `
		SELECT id, user_id, name, location, niche, lead_ids, created_at
		FROM campaigns
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*model.Campaign
	for rows.Next() {
		c := &model.Campaign{}
		var leadIDs pq.StringArray
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Location, &c.Niche, &leadIDs, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		c.LeadIDs = leadIDs
		out = append(out, c)
	}
	return out, rows.Err()
}
