package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

// MockUserLoader mocks the persisted user source.
type MockUserLoader struct {
	mock.Mock
}

func (m *MockUserLoader) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserLoader) List(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func TestGetLazilyLoadsFromDatabase(t *testing.T) {
	st := store.New()
	loader := new(MockUserLoader)
	svc := NewUserService(st, loader, NopPersister{}, logger.NewNop())
	ctx := context.Background()

	loader.On("FindByID", mock.Anything, "u1").
		Return(&model.User{ID: "u1", Name: "Ana", Credits: 30, Status: model.UserActive}, nil).Once()

	user, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)

	// Second read hits the store, not the database.
	_, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	loader.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestGetUnknownUser(t *testing.T) {
	st := store.New()
	loader := new(MockUserLoader)
	svc := NewUserService(st, loader, NopPersister{}, logger.NewNop())

	loader.On("FindByID", mock.Anything, "ghost").Return(nil, store.ErrNotFound)

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBootstrapSeedsUsableAccount(t *testing.T) {
	st := store.New()
	svc := NewUserService(st, nil, NopPersister{}, logger.NewNop())
	ctx := context.Background()

	seeded := svc.Bootstrap("dev-admin", 25)
	assert.Equal(t, model.RoleAdmin, seeded.Role)
	assert.Equal(t, model.UserActive, seeded.Status)
	assert.Equal(t, 25, seeded.Credits)

	// The account is immediately usable through the normal read path.
	user, err := svc.Get(ctx, "dev-admin")
	require.NoError(t, err)
	assert.Equal(t, 25, user.Credits)

	t.Run("Existing Account Wins", func(t *testing.T) {
		require.NoError(t, st.SpendCredit("dev-admin"))
		again := svc.Bootstrap("dev-admin", 100)
		assert.Equal(t, 24, again.Credits, "seeding must not reset a live balance")
	})
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	st := store.New()
	st.PutUser(&model.User{ID: "u1", Name: "Ana", Email: "ana@example.com", Plan: "starter", Credits: 10, Status: model.UserActive})
	svc := NewUserService(st, nil, NopPersister{}, logger.NewNop())

	credits := 50
	status := model.UserInactive
	updated, err := svc.Update(context.Background(), "u1", model.UpdateUserRequest{
		Credits: &credits,
		Status:  &status,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, updated.Credits)
	assert.Equal(t, model.UserInactive, updated.Status)
	assert.Equal(t, "Ana", updated.Name, "untouched fields keep their values")
	assert.Equal(t, "starter", updated.Plan)
}

func TestPlanCRUD(t *testing.T) {
	st := store.New()
	svc := NewUserService(st, nil, NopPersister{}, logger.NewNop())
	ctx := context.Background()

	before := len(svc.Plans(ctx))

	saved := svc.SavePlan(ctx, &model.Plan{Name: "Custom", Price: "49€", Credits: 50})
	assert.NotEmpty(t, saved.ID, "new plans get generated IDs")
	assert.Len(t, svc.Plans(ctx), before+1)

	require.NoError(t, svc.DeletePlan(ctx, saved.ID))
	assert.Len(t, svc.Plans(ctx), before)
	assert.Error(t, svc.DeletePlan(ctx, saved.ID))
}
