package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecletika/leadscope/internal/agent"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

// MockGateway mocks the LLM gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SearchProspects(ctx context.Context, params model.SearchParams, campaignName string) ([]model.RawProspect, error) {
	args := m.Called(ctx, params, campaignName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawProspect), args.Error(1)
}

func (m *MockGateway) EnrichProspect(ctx context.Context, raw model.RawProspect) (*model.Lead, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *MockGateway) InvestigateStorefront(ctx context.Context, lead *model.Lead) (*agent.Investigation, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Investigation), args.Error(1)
}

func (m *MockGateway) GenerateProposal(ctx context.Context, lead *model.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GenerateOutreach(ctx context.Context, lead *model.Lead) ([]model.EmailDraft, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmailDraft), args.Error(1)
}

func (m *MockGateway) GenerateWebsite(ctx context.Context, lead *model.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) RefineWebsite(ctx context.Context, code, instruction string) (string, error) {
	args := m.Called(ctx, code, instruction)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) AskAboutLead(ctx context.Context, lead *model.Lead, question string, history []model.ChatMessage) (string, error) {
	args := m.Called(ctx, lead, question, history)
	return args.String(0), args.Error(1)
}

// MockSender mocks outbound SMTP delivery.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, cfg model.SMTPConfig, to, subject, body string) error {
	args := m.Called(ctx, cfg, to, subject, body)
	return args.Error(0)
}

// MockLeadLoader mocks the persisted lead reader.
type MockLeadLoader struct {
	mock.Mock
}

func (m *MockLeadLoader) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// MockCampaignLoader mocks the persisted campaign reader.
type MockCampaignLoader struct {
	mock.Mock
}

func (m *MockCampaignLoader) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignLoader) FindByUser(ctx context.Context, userID string) ([]*model.Campaign, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

func newFixture(t *testing.T) (*store.Store, *MockGateway, *MockSender, *LeadService) {
	t.Helper()
	st := store.New()
	st.PutUser(&model.User{ID: "u1", Credits: 5, Status: model.UserActive})
	st.PutLead(&model.Lead{
		ID:          "l1",
		CampaignID:  "c1",
		CompanyName: "Tasca do Ze",
		Email:       "geral@tascadoze.pt",
		Potential:   model.PotentialMedium,
	})
	require.NoError(t, st.PutCampaign(&model.Campaign{ID: "c1", UserID: "u1", Name: "Porto", LeadIDs: []string{"l1"}}))

	gateway := new(MockGateway)
	sender := new(MockSender)
	svc := NewLeadService(gateway, st, nil, nil, NopPersister{}, sender, logger.NewNop())
	return st, gateway, sender, svc
}

func TestGetEnforcesOwnership(t *testing.T) {
	_, _, _, svc := newFixture(t)
	ctx := context.Background()

	t.Run("Owner", func(t *testing.T) {
		lead, err := svc.Get(ctx, "u1", "l1", false)
		require.NoError(t, err)
		assert.Equal(t, "Tasca do Ze", lead.CompanyName)
	})

	t.Run("Other User", func(t *testing.T) {
		_, err := svc.Get(ctx, "u2", "l1", false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Admin", func(t *testing.T) {
		_, err := svc.Get(ctx, "u2", "l1", true)
		assert.NoError(t, err)
	})

	t.Run("Unknown Lead", func(t *testing.T) {
		_, err := svc.Get(ctx, "u1", "missing", false)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGetLazilyLoadsLeadAndCampaign(t *testing.T) {
	st := store.New()
	st.PutUser(&model.User{ID: "u1", Credits: 5, Status: model.UserActive, CampaignIDs: []string{"c1"}})

	leadLoader := new(MockLeadLoader)
	campaignLoader := new(MockCampaignLoader)
	svc := NewLeadService(new(MockGateway), st, leadLoader, campaignLoader, NopPersister{}, new(MockSender), logger.NewNop())
	ctx := context.Background()

	// Neither the lead nor its campaign is in the store, as after a
	// restart; both fall through to the persisted copy.
	leadLoader.On("FindByID", mock.Anything, "l1").
		Return(&model.Lead{ID: "l1", CampaignID: "c1", CompanyName: "Tasca do Ze"}, nil).Once()
	campaignLoader.On("FindByID", mock.Anything, "c1").
		Return(&model.Campaign{ID: "c1", UserID: "u1", Name: "Porto", LeadIDs: []string{"l1"}}, nil).Once()

	lead, err := svc.Get(ctx, "u1", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, "Tasca do Ze", lead.CompanyName)

	// Both entities are now cached; the second read stays in the store.
	_, err = svc.Get(ctx, "u1", "l1", false)
	require.NoError(t, err)
	leadLoader.AssertNumberOfCalls(t, "FindByID", 1)
	campaignLoader.AssertNumberOfCalls(t, "FindByID", 1)

	// Hydration must not grow the owner's history order.
	user, err := st.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, user.CampaignIDs)

	t.Run("Ownership Still Enforced", func(t *testing.T) {
		_, err := svc.Get(ctx, "u2", "l1", false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Missing Everywhere", func(t *testing.T) {
		leadLoader.On("FindByID", mock.Anything, "ghost").
			Return(nil, store.ErrNotFound).Once()
		_, err := svc.Get(ctx, "u1", "ghost", false)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestProposalIsIdempotent(t *testing.T) {
	_, gateway, _, svc := newFixture(t)
	ctx := context.Background()

	gateway.On("GenerateProposal", mock.Anything, mock.Anything).
		Return("Dear Tasca do Ze, ...", nil).Once()

	first, err := svc.Proposal(ctx, "u1", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, "Dear Tasca do Ze, ...", first.ProposalText)

	// The second call returns the stored text without another LLM call.
	second, err := svc.Proposal(ctx, "u1", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, first.ProposalText, second.ProposalText)

	gateway.AssertNumberOfCalls(t, "GenerateProposal", 1)
}

func TestSiteGenerationAndRefinement(t *testing.T) {
	_, gateway, _, svc := newFixture(t)
	ctx := context.Background()

	t.Run("Refine Before Generate", func(t *testing.T) {
		_, err := svc.RefineSite(ctx, "u1", "l1", "make it blue", false)
		assert.ErrorIs(t, err, ErrNoSite)
	})

	gateway.On("GenerateWebsite", mock.Anything, mock.Anything).
		Return("<html>v1</html>", nil).Once()

	lead, err := svc.GenerateSite(ctx, "u1", "l1", false)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", lead.SiteCode)

	t.Run("Generate Is Idempotent", func(t *testing.T) {
		again, err := svc.GenerateSite(ctx, "u1", "l1", false)
		require.NoError(t, err)
		assert.Equal(t, "<html>v1</html>", again.SiteCode)
		gateway.AssertNumberOfCalls(t, "GenerateWebsite", 1)
	})

	t.Run("Refine Replaces Code", func(t *testing.T) {
		gateway.On("RefineWebsite", mock.Anything, "<html>v1</html>", "make it blue").
			Return("<html>v2</html>", nil).Once()

		refined, err := svc.RefineSite(ctx, "u1", "l1", "make it blue", false)
		require.NoError(t, err)
		assert.Equal(t, "<html>v2</html>", refined.SiteCode)
	})
}

func TestOutreachSequence(t *testing.T) {
	_, gateway, sender, svc := newFixture(t)
	ctx := context.Background()

	drafts := []model.EmailDraft{
		{Type: model.DraftIntro, Subject: "Hello", Body: "intro"},
		{Type: model.DraftFollowUp1, Subject: "Following up", Body: "fu1"},
		{Type: model.DraftFollowUp2, Subject: "Still here", Body: "fu2"},
		{Type: model.DraftBreakup, Subject: "Closing the loop", Body: "bye"},
	}
	gateway.On("GenerateOutreach", mock.Anything, mock.Anything).Return(drafts, nil).Once()

	lead, err := svc.Outreach(ctx, "u1", "l1", false)
	require.NoError(t, err)
	require.Len(t, lead.EmailSequence, 4)
	for i, d := range lead.EmailSequence {
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, i+1, d.Step)
		assert.Equal(t, "draft", d.Status)
	}

	t.Run("Idempotent", func(t *testing.T) {
		again, err := svc.Outreach(ctx, "u1", "l1", false)
		require.NoError(t, err)
		assert.Equal(t, lead.EmailSequence, again.EmailSequence)
		gateway.AssertNumberOfCalls(t, "GenerateOutreach", 1)
	})

	t.Run("Send Marks Draft Sent", func(t *testing.T) {
		cfg := model.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "mailer"}
		sender.On("Send", mock.Anything, cfg, "geral@tascadoze.pt", "Hello", "intro").
			Return(nil).Once()

		updated, err := svc.SendDraft(ctx, "u1", "l1", lead.EmailSequence[0].ID, false, cfg)
		require.NoError(t, err)
		assert.Equal(t, "sent", updated.EmailSequence[0].Status)
		assert.Equal(t, "draft", updated.EmailSequence[1].Status)
	})

	t.Run("Send Unknown Draft", func(t *testing.T) {
		_, err := svc.SendDraft(ctx, "u1", "l1", "missing", false, model.SMTPConfig{Host: "h", Port: 25})
		assert.ErrorIs(t, err, ErrNoDraft)
	})
}

func TestInvestigateMergesFindings(t *testing.T) {
	_, gateway, _, svc := newFixture(t)
	ctx := context.Background()

	gateway.On("InvestigateStorefront", mock.Anything, mock.Anything).
		Return(&agent.Investigation{
			Analysis: model.Storefront{
				SignageCondition: "worn",
				VisualAppeal:     "dated",
				NeedsLedUpgrade:  true,
				Description:      "Faded sign above a busy corner cafe",
			},
			LeadUpdates: agent.InvestigationData{
				BusinessHours: "Mon-Sat 08:00-19:00",
				MapsRating:    4.3,
				MapsReviews:   120,
				AllPhones:     []string{"+351 222 000 000"},
			},
		}, nil).Once()

	lead, err := svc.Investigate(ctx, "u1", "l1", false)
	require.NoError(t, err)

	assert.True(t, lead.Storefront.Analyzed)
	assert.Equal(t, "worn", lead.Storefront.SignageCondition)
	assert.Equal(t, "Mon-Sat 08:00-19:00", lead.BusinessHours)
	assert.Equal(t, 4.3, lead.MapsRating)
	assert.Equal(t, 120, lead.MapsReviews)

	// A storefront needing an LED upgrade promotes the lead to Hot.
	assert.Equal(t, model.PotentialHot, lead.Potential)
	assert.Contains(t, lead.PotentialReasoning, "LED upgrade")

	t.Run("Idempotent", func(t *testing.T) {
		again, err := svc.Investigate(ctx, "u1", "l1", false)
		require.NoError(t, err)
		assert.True(t, again.Storefront.Analyzed)
		gateway.AssertNumberOfCalls(t, "InvestigateStorefront", 1)
	})
}

func TestChatAppendsTranscript(t *testing.T) {
	st, gateway, _, svc := newFixture(t)
	ctx := context.Background()

	gateway.On("AskAboutLead", mock.Anything, mock.Anything, "do they have a website?", mock.Anything).
		Return("No website was found for this business.", nil).Once()

	answer, lead, err := svc.Chat(ctx, "u1", "l1", "do they have a website?", false)
	require.NoError(t, err)
	assert.Equal(t, "No website was found for this business.", answer)

	require.Len(t, lead.ChatHistory, 2)
	assert.Equal(t, model.ChatRoleUser, lead.ChatHistory[0].Role)
	assert.Equal(t, "do they have a website?", lead.ChatHistory[0].Content)
	assert.Equal(t, model.ChatRoleAssistant, lead.ChatHistory[1].Role)

	// The transcript is stored, so the next question carries history.
	stored, err := st.GetLead("l1")
	require.NoError(t, err)
	assert.Len(t, stored.ChatHistory, 2)

	gateway.On("AskAboutLead", mock.Anything, mock.Anything, "second question", mock.MatchedBy(func(h []model.ChatMessage) bool {
		return len(h) == 2
	})).Return("answer two", nil).Once()

	_, lead, err = svc.Chat(ctx, "u1", "l1", "second question", false)
	require.NoError(t, err)
	assert.Len(t, lead.ChatHistory, 4)
}
