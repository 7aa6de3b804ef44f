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

// UserRepository reads and writes user rows.
type UserRepository struct {
	DB *sql.DB
}

// FindByID loads one user with their campaign history order.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, email, role, plan, credits, status, campaign_ids, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u := &model.User{}
	var campaignIDs pq.StringArray
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Plan, &u.Credits, &u.Status,
		&campaignIDs, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.CampaignIDs = campaignIDs
	return u, nil
}

// List returns all users ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, name, email, role, plan, credits, status, campaign_ids, created_at, updated_at
		FROM users
		ORDER BY name
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		var campaignIDs pq.StringArray
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Role, &u.Plan, &u.Credits, &u.Status,
			&campaignIDs, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CampaignIDs = campaignIDs
		out = append(out, u)
	}
	return out, rows.Err()
}

// Upsert writes the user's billing state and history order.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, name, email, role, plan, credits, status, campaign_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			plan = EXCLUDED.plan,
			credits = EXCLUDED.credits,
			status = EXCLUDED.status,
			campaign_ids = EXCLUDED.campaign_ids,
			updated_at = NOW()
	`

	_, err := r.DB.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.Plan, u.Credits, u.Status,
		pq.Array(u.CampaignIDs),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
