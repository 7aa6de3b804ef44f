package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecletika/leadscope/internal/middleware"
	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

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

func campaignRequest(userID, campaignID, path string) *http.Request {
	req := httptest.NewRequest("GET", path, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	if campaignID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", campaignID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func TestGetHydratesCampaignFromDatabase(t *testing.T) {
	const campaignID = "0190a6e2-0000-7000-8000-000000000001"

	st := store.New()
	st.PutUser(&model.User{ID: "u1", Credits: 5, Status: model.UserActive, CampaignIDs: []string{campaignID}})

	loader := new(MockCampaignLoader)
	h := NewCampaignHandler(st, loader, logger.NewNop())

	// The store starts empty, as after a restart; the read falls through
	// to the persisted copy exactly once.
	loader.On("FindByID", mock.Anything, campaignID).
		Return(&model.Campaign{ID: campaignID, UserID: "u1", Name: "Porto Q1"}, nil).Once()

	w := httptest.NewRecorder()
	h.Get(w, campaignRequest("u1", campaignID, "/api/v1/campaigns/"+campaignID))
	require.Equal(t, http.StatusOK, w.Code)

	var got model.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Porto Q1", got.Name)

	t.Run("Second Read Stays In The Store", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Get(w, campaignRequest("u1", campaignID, "/api/v1/campaigns/"+campaignID))
		assert.Equal(t, http.StatusOK, w.Code)
		loader.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("Hydration Keeps Ownership Check", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Get(w, campaignRequest("u2", campaignID, "/api/v1/campaigns/"+campaignID))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing Everywhere Is 404", func(t *testing.T) {
		const ghost = "0190a6e2-0000-7000-8000-00000000dead"
		loader.On("FindByID", mock.Anything, ghost).
			Return(nil, store.ErrNotFound).Once()

		w := httptest.NewRecorder()
		h.Get(w, campaignRequest("u1", ghost, "/api/v1/campaigns/"+ghost))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListHydratesHistoryFromDatabase(t *testing.T) {
	const campaignID = "0190a6e2-0000-7000-8000-000000000002"

	st := store.New()
	st.PutUser(&model.User{ID: "u1", Credits: 5, Status: model.UserActive, CampaignIDs: []string{campaignID}})

	loader := new(MockCampaignLoader)
	h := NewCampaignHandler(st, loader, logger.NewNop())

	loader.On("FindByUser", mock.Anything, "u1").
		Return([]*model.Campaign{{ID: campaignID, UserID: "u1", Name: "Porto Q1"}}, nil).Once()

	w := httptest.NewRecorder()
	h.List(w, campaignRequest("u1", "", "/api/v1/campaigns"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Campaigns []model.CampaignSummary `json:"campaigns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Campaigns, 1)
	assert.Equal(t, "Porto Q1", resp.Campaigns[0].Name)

	// Hydration must not duplicate the history order.
	user, err := st.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{campaignID}, user.CampaignIDs)

	t.Run("Second List Stays In The Store", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, campaignRequest("u1", "", "/api/v1/campaigns"))
		assert.Equal(t, http.StatusOK, w.Code)
		loader.AssertNumberOfCalls(t, "FindByUser", 1)
	})
}
