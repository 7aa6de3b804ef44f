package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecletika/leadscope/internal/model"
)

func seedUser(s *Store, credits int) *model.User {
	u := &model.User{ID: "u1", Name: "Test", Credits: credits, Status: model.UserActive}
	s.PutUser(u)
	return u
}

func TestSpendAndRefundCredit(t *testing.T) {
	s := New()
	seedUser(s, 1)

	require.NoError(t, s.SpendCredit("u1"))
	assert.ErrorIs(t, s.SpendCredit("u1"), ErrInsufficientCredits)

	require.NoError(t, s.RefundCredit("u1"))
	u, _ := s.GetUser("u1")
	assert.Equal(t, 1, u.Credits)

	assert.ErrorIs(t, s.SpendCredit("missing"), ErrNotFound)
}

func TestPutCampaignPrependsToHistory(t *testing.T) {
	s := New()
	seedUser(s, 5)

	require.NoError(t, s.PutCampaign(&model.Campaign{ID: "c1", UserID: "u1", Name: "First"}))
	require.NoError(t, s.PutCampaign(&model.Campaign{ID: "c2", UserID: "u1", Name: "Second"}))

	u, _ := s.GetUser("u1")
	assert.Equal(t, []string{"c2", "c1"}, u.CampaignIDs, "newest campaign first")

	summaries, err := s.ListCampaigns("u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Second", summaries[0].Name)

	assert.ErrorIs(t, s.PutCampaign(&model.Campaign{ID: "c3", UserID: "ghost"}), ErrNotFound)
}

// Restoring a persisted campaign must not change the owner's history
// order, which already references it.
func TestRestoreCampaignKeepsHistoryOrder(t *testing.T) {
	s := New()
	u := &model.User{ID: "u1", Name: "Test", Credits: 5, Status: model.UserActive, CampaignIDs: []string{"c2", "c1"}}
	s.PutUser(u)

	s.RestoreCampaign(&model.Campaign{ID: "c1", UserID: "u1", Name: "First"})
	s.RestoreCampaign(&model.Campaign{ID: "c2", UserID: "u1", Name: "Second"})

	got, _ := s.GetUser("u1")
	assert.Equal(t, []string{"c2", "c1"}, got.CampaignIDs)

	summaries, err := s.ListCampaigns("u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Second", summaries[0].Name)
	assert.Equal(t, "First", summaries[1].Name)
}

// A lead mutation must be visible through every view that reaches the lead,
// because all views read the same record.
func TestLeadMutationVisibleInAllViews(t *testing.T) {
	s := New()
	seedUser(s, 5)

	s.PutLead(&model.Lead{ID: "l1", CompanyName: "Tasca do Ze", Potential: model.PotentialMedium})
	require.NoError(t, s.PutCampaign(&model.Campaign{ID: "c1", UserID: "u1", Name: "Porto", LeadIDs: []string{"l1"}}))

	_, err := s.UpdateLead("l1", func(l *model.Lead) error {
		l.Potential = model.PotentialHot
		l.ProposalText = "proposal"
		return nil
	})
	require.NoError(t, err)

	direct, err := s.GetLead("l1")
	require.NoError(t, err)
	assert.Equal(t, model.PotentialHot, direct.Potential)

	campaign, err := s.GetCampaign("c1")
	require.NoError(t, err)
	viaCampaign := s.Leads(campaign.LeadIDs)
	require.Len(t, viaCampaign, 1)
	assert.Equal(t, model.PotentialHot, viaCampaign[0].Potential)
	assert.Equal(t, "proposal", viaCampaign[0].ProposalText)
}

func TestReturnedCopiesDoNotLeakMutations(t *testing.T) {
	s := New()
	s.PutLead(&model.Lead{ID: "l1", CompanyName: "Cafe Central"})

	got, err := s.GetLead("l1")
	require.NoError(t, err)
	got.CompanyName = "Renamed"
	got.ChatHistory = append(got.ChatHistory, model.ChatMessage{Role: model.ChatRoleUser, Content: "hi"})

	fresh, err := s.GetLead("l1")
	require.NoError(t, err)
	assert.Equal(t, "Cafe Central", fresh.CompanyName)
	assert.Empty(t, fresh.ChatHistory)
}

func TestFilterLeads(t *testing.T) {
	s := New()
	s.PutLead(&model.Lead{ID: "l1", CompanyName: "Tasca do Ze", CAE: "56101", Potential: model.PotentialHot})
	s.PutLead(&model.Lead{ID: "l2", CompanyName: "Cafe Central", CAE: "56301", Potential: model.PotentialMedium})
	s.PutLead(&model.Lead{ID: "l3", CompanyName: "Padaria Flor", CAE: "10711", Potential: model.PotentialHot})
	ids := []string{"l1", "l2", "l3"}

	t.Run("No Constraint", func(t *testing.T) {
		assert.Len(t, s.FilterLeads(ids, model.LeadFilter{}), 3)
	})

	t.Run("Name Substring Case Insensitive", func(t *testing.T) {
		got := s.FilterLeads(ids, model.LeadFilter{Name: "cafe"})
		require.Len(t, got, 1)
		assert.Equal(t, "l2", got[0].ID)
	})

	t.Run("CAE Substring", func(t *testing.T) {
		got := s.FilterLeads(ids, model.LeadFilter{CAE: "563"})
		require.Len(t, got, 1)
		assert.Equal(t, "l2", got[0].ID)
	})

	t.Run("Potential Equality", func(t *testing.T) {
		got := s.FilterLeads(ids, model.LeadFilter{Potential: model.PotentialHot})
		assert.Len(t, got, 2)
	})

	t.Run("Conjunction", func(t *testing.T) {
		got := s.FilterLeads(ids, model.LeadFilter{Name: "a", Potential: model.PotentialHot})
		assert.Len(t, got, 2)
		got = s.FilterLeads(ids, model.LeadFilter{Name: "padaria", Potential: model.PotentialMedium})
		assert.Empty(t, got)
	})

	t.Run("Unknown IDs Are Skipped", func(t *testing.T) {
		got := s.FilterLeads([]string{"l1", "missing"}, model.LeadFilter{})
		assert.Len(t, got, 1)
	})
}

func TestPlanCatalog(t *testing.T) {
	s := New()

	plans := s.ListPlans()
	require.NotEmpty(t, plans, "catalog is seeded with defaults")

	s.PutPlan(&model.Plan{ID: "custom", Name: "Custom", Price: "49€", Credits: 50})
	assert.Len(t, s.ListPlans(), len(plans)+1)

	require.NoError(t, s.DeletePlan("custom"))
	assert.ErrorIs(t, s.DeletePlan("custom"), ErrNotFound)
}
