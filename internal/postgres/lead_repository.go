package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
)

// LeadRepository reads and writes lead rows. Generated artifacts
// (proposal, site code, drafts, transcript) ride along as JSONB.
type LeadRepository struct {
	DB *sql.DB
}

// Upsert writes the lead, replacing any previous version of the row.
func (r *LeadRepository) Upsert(ctx context.Context, l *model.Lead) error {
	storefront, err := json.Marshal(l.Storefront)
	if err != nil {
		return fmt.Errorf("marshal storefront: %w", err)
	}
	sequence, err := json.Marshal(l.EmailSequence)
	if err != nil {
		return fmt.Errorf("marshal email sequence: %w", err)
	}
	chat, err := json.Marshal(l.ChatHistory)
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}

	query := `
		INSERT INTO leads (
			id, campaign_id, company_name, location, niche, website, email, phone,
			all_phones, socials, nif, cae, secondary_cae, business_activity,
			foundation_year, employees, business_hours, services_offered,
			social_summary, maps_rating, maps_reviews, has_website,
			professional_email, website_score, diagnosis, potential,
			potential_reasoning, storefront, proposal_text, site_code,
			email_sequence, chat_history, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31, $32, $33, NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			website = EXCLUDED.website,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			all_phones = EXCLUDED.all_phones,
			business_hours = EXCLUDED.business_hours,
			maps_rating = EXCLUDED.maps_rating,
			maps_reviews = EXCLUDED.maps_reviews,
			potential = EXCLUDED.potential,
			potential_reasoning = EXCLUDED.potential_reasoning,
			storefront = EXCLUDED.storefront,
			proposal_text = EXCLUDED.proposal_text,
			site_code = EXCLUDED.site_code,
			email_sequence = EXCLUDED.email_sequence,
			chat_history = EXCLUDED.chat_history,
			updated_at = NOW()
	`

	_, err = r.DB.ExecContext(ctx, query,
		l.ID, l.CampaignID, l.CompanyName, l.Location, l.Niche, l.Website, l.Email, l.Phone,
		pq.Array(l.AllPhones), pq.Array(l.Socials), l.NIF, l.CAE, pq.Array(l.SecondaryCAE), l.BusinessActivity,
		l.FoundationYear, l.Employees, l.BusinessHours, pq.Array(l.ServicesOffered),
		l.SocialSummary, l.MapsRating, l.MapsReviews, l.HasWebsite,
		l.ProfessionalEmail, l.WebsiteScore, l.Diagnosis, l.Potential,
		l.PotentialReasoning, storefront, l.ProposalText, l.SiteCode,
		sequence, chat, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert lead: %w", err)
	}
	return nil
}

// FindByID loads one lead.
func (r *LeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	query := `
		SELECT id, campaign_id, company_name, location, niche, website, email, phone,
		       all_phones, socials, nif, cae, secondary_cae, business_activity,
		       foundation_year, employees, business_hours, services_offered,
		       social_summary, maps_rating, maps_reviews, has_website,
		       professional_email, website_score, diagnosis, potential,
		       potential_reasoning, storefront, proposal_text, site_code,
		       email_sequence, chat_history, created_at, updated_at
		FROM leads
		WHERE id = $1
	`

	l := &model.Lead{}
	var allPhones, socials, secondaryCAE, services pq.StringArray
	var storefront, sequence, chat []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.CampaignID, &l.CompanyName, &l.Location, &l.Niche, &l.Website, &l.Email, &l.Phone,
		&allPhones, &socials, &l.NIF, &l.CAE, &secondaryCAE, &l.BusinessActivity,
		&l.FoundationYear, &l.Employees, &l.BusinessHours, &services,
		&l.SocialSummary, &l.MapsRating, &l.MapsReviews, &l.HasWebsite,
		&l.ProfessionalEmail, &l.WebsiteScore, &l.Diagnosis, &l.Potential,
		&l.PotentialReasoning, &storefront, &l.ProposalText, &l.SiteCode,
		&sequence, &chat, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}

	l.AllPhones = allPhones
	l.Socials = socials
	l.SecondaryCAE = secondaryCAE
	l.ServicesOffered = services
	if err := json.Unmarshal(storefront, &l.Storefront); err != nil {
		return nil, fmt.Errorf("unmarshal storefront: %w", err)
	}
	if len(sequence) > 0 {
		if err := json.Unmarshal(sequence, &l.EmailSequence); err != nil {
			return nil, fmt.Errorf("unmarshal email sequence: %w", err)
		}
	}
	if len(chat) > 0 {
		if err := json.Unmarshal(chat, &l.ChatHistory); err != nil {
			return nil, fmt.Errorf("unmarshal chat history: %w", err)
		}
	}
	return l, nil
}
