// Package service implements the per-lead on-demand actions and the user
// and plan administration operations on top of the normalized store.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/agent"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

var (
	// ErrForbidden is returned when a user touches a lead they do not own.
	ErrForbidden = errors.New("lead does not belong to this user")
	// ErrNoSite is returned when refining a lead that has no generated site.
	ErrNoSite = errors.New("no website has been generated for this lead")
	// ErrNoDraft is returned when the requested outreach draft does not exist.
	ErrNoDraft = errors.New("outreach draft not found")
	// ErrNoEmail is returned when sending to a lead without an email address.
	ErrNoEmail = errors.New("lead has no email address")
)

// Persister is the write-behind persistence used by the services.
type Persister interface {
	SaveLead(ctx context.Context, lead *model.Lead) error
	SaveUser(ctx context.Context, user *model.User) error
}

// NopPersister discards writes; used when no database is configured.
type NopPersister struct{}

func (NopPersister) SaveLead(context.Context, *model.Lead) error { return nil }
func (NopPersister) SaveUser(context.Context, *model.User) error { return nil }

// MailSender delivers a single outreach message over SMTP.
type MailSender interface {
	Send(ctx context.Context, cfg model.SMTPConfig, to, subject, body string) error
}

// LeadLoader reads leads from the persisted copy.
type LeadLoader interface {
	FindByID(ctx context.Context, id string) (*model.Lead, error)
}

// CampaignLoader reads campaigns from the persisted copy.
type CampaignLoader interface {
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Campaign, error)
}

// LeadService runs the on-demand actions. Generation is idempotent: when
// the artifact already exists it is returned without another LLM call.
// Leads and campaigns are lazily loaded from Postgres into the store on
// first access, the same way UserService hydrates accounts.
type LeadService struct {
	gateway   agent.Gateway
	store     *store.Store
	leads     LeadLoader     // nil when no database is configured
	campaigns CampaignLoader // nil when no database is configured
	archive   Persister
	mail      MailSender
	logger    *logger.Logger
}

// NewLeadService creates a lead service.
func NewLeadService(gateway agent.Gateway, st *store.Store, leads LeadLoader, campaigns CampaignLoader, archive Persister, mail MailSender, log *logger.Logger) *LeadService {
	return &LeadService{gateway: gateway, store: st, leads: leads, campaigns: campaigns, archive: archive, mail: mail, logger: log}
}

// Get loads a lead after checking ownership. Leads still attached to a
// running pipeline (no campaign yet) are only reachable by admins.
func (s *LeadService) Get(ctx context.Context, userID, leadID string, admin bool) (*model.Lead, error) {
	lead, err := s.store.GetLead(leadID)
	if errors.Is(err, store.ErrNotFound) && s.leads != nil {
		lead, err = s.leads.FindByID(ctx, leadID)
		if err == nil {
			s.store.PutLead(lead)
		}
	}
	if err != nil {
		return nil, err
	}
	if admin {
		return lead, nil
	}
	if lead.CampaignID == "" {
		return nil, ErrForbidden
	}
	campaign, err := s.store.GetCampaign(lead.CampaignID)
	if errors.Is(err, store.ErrNotFound) && s.campaigns != nil {
		campaign, err = s.campaigns.FindByID(ctx, lead.CampaignID)
		if err == nil {
			s.store.RestoreCampaign(campaign)
		}
	}
	if err != nil {
		return nil, err
	}
	if campaign.UserID != userID {
		return nil, ErrForbidden
	}
	return lead, nil
}

// Investigate runs the storefront assessment once and merges the findings
// into the lead. An already analyzed storefront is returned as is.
func (s *LeadService) Investigate(ctx context.Context, userID, leadID string, admin bool) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if lead.Storefront.Analyzed {
		return lead, nil
	}

	inv, err := s.gateway.InvestigateStorefront(ctx, lead)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		inv.Analysis.Analyzed = true
		l.Storefront = inv.Analysis

		if inv.LeadUpdates.BusinessHours != "" {
			l.BusinessHours = inv.LeadUpdates.BusinessHours
		}
		if inv.LeadUpdates.MapsRating > 0 {
			l.MapsRating = inv.LeadUpdates.MapsRating
		}
		if inv.LeadUpdates.MapsReviews > 0 {
			l.MapsReviews = inv.LeadUpdates.MapsReviews
		}
		if len(inv.LeadUpdates.AllPhones) > 0 {
			l.AllPhones = inv.LeadUpdates.AllPhones
		}

		// Worn signage is the strongest buying signal for the product.
		if inv.Analysis.NeedsLedUpgrade && l.Potential != model.PotentialHot {
			l.Potential = model.PotentialHot
			l.PotentialReasoning = strings.TrimSpace(
				l.PotentialReasoning + " Storefront signage needs an LED upgrade.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// Proposal generates the commercial proposal text once.
func (s *LeadService) Proposal(ctx context.Context, userID, leadID string, admin bool) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if lead.ProposalText != "" {
		return lead, nil
	}

	text, err := s.gateway.GenerateProposal(ctx, lead)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		l.ProposalText = text
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// Outreach generates the four-step email sequence once.
func (s *LeadService) Outreach(ctx context.Context, userID, leadID string, admin bool) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if len(lead.EmailSequence) > 0 {
		return lead, nil
	}

	drafts, err := s.gateway.GenerateOutreach(ctx, lead)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		if drafts[i].ID == "" {
			drafts[i].ID = uuid.Must(uuid.NewV7()).String()
		}
		drafts[i].Step = i + 1
		if drafts[i].Status == "" {
			drafts[i].Status = "draft"
		}
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		l.EmailSequence = drafts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// SendDraft delivers one outreach draft to the lead's email address and
// marks it as sent.
func (s *LeadService) SendDraft(ctx context.Context, userID, leadID, draftID string, admin bool, cfg model.SMTPConfig) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if lead.Email == "" {
		return nil, ErrNoEmail
	}

	var draft *model.EmailDraft
	for i := range lead.EmailSequence {
		if lead.EmailSequence[i].ID == draftID {
			draft = &lead.EmailSequence[i]
			break
		}
	}
	if draft == nil {
		return nil, ErrNoDraft
	}

	if err := s.mail.Send(ctx, cfg, lead.Email, draft.Subject, draft.Body); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		for i := range l.EmailSequence {
			if l.EmailSequence[i].ID == draftID {
				l.EmailSequence[i].Status = "sent"
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// GenerateSite produces the single-file landing page once.
func (s *LeadService) GenerateSite(ctx context.Context, userID, leadID string, admin bool) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if lead.SiteCode != "" {
		return lead, nil
	}

	code, err := s.gateway.GenerateWebsite(ctx, lead)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		l.SiteCode = code
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// RefineSite applies a natural-language instruction to the generated site.
// Unlike generation this always runs; each call replaces the code.
func (s *LeadService) RefineSite(ctx context.Context, userID, leadID, instruction string, admin bool) (*model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return nil, err
	}
	if lead.SiteCode == "" {
		return nil, ErrNoSite
	}

	code, err := s.gateway.RefineWebsite(ctx, lead.SiteCode, instruction)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		l.SiteCode = code
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(ctx, updated)
	return updated, nil
}

// Chat answers a question about the lead and appends the exchange to the
// transcript. Returns the answer and the updated lead.
func (s *LeadService) Chat(ctx context.Context, userID, leadID, question string, admin bool) (string, *model.Lead, error) {
	lead, err := s.Get(ctx, userID, leadID, admin)
	if err != nil {
		return "", nil, err
	}

	answer, err := s.gateway.AskAboutLead(ctx, lead, question, lead.ChatHistory)
	if err != nil {
		return "", nil, err
	}

	updated, err := s.store.UpdateLead(leadID, func(l *model.Lead) error {
		l.ChatHistory = append(l.ChatHistory,
			model.ChatMessage{Role: model.ChatRoleUser, Content: question},
			model.ChatMessage{Role: model.ChatRoleAssistant, Content: answer},
		)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	s.persist(ctx, updated)
	return answer, updated, nil
}

// persist writes the lead behind the store. The store remains the live
// working set, so persistence failures are logged, not surfaced.
func (s *LeadService) persist(ctx context.Context, lead *model.Lead) {
	if err := s.archive.SaveLead(ctx, lead); err != nil {
		s.logger.Warn("lead persistence failed",
			zap.String("lead_id", lead.ID), zap.Error(err))
	}
}
