package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecletika/leadscope/internal/model"
	"github.com/ecletika/leadscope/internal/store"
	"github.com/ecletika/leadscope/pkg/logger"
)

// UserLoader reads users from the persisted copy.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// UserService manages accounts and the plan catalog. Users are lazily
// loaded from Postgres into the store on first access.
type UserService struct {
	store   *store.Store
	users   UserLoader // nil when no database is configured
	archive Persister
	logger  *logger.Logger
}

// NewUserService creates a user service.
func NewUserService(st *store.Store, users UserLoader, archive Persister, log *logger.Logger) *UserService {
	return &UserService{store: st, users: users, archive: archive, logger: log}
}

// Get returns the user, loading it from the database if the store has not
// seen it yet.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUser(id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) || s.users == nil {
		return nil, err
	}

	user, err = s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store.PutUser(user)
	return user.Clone(), nil
}

// Bootstrap ensures an active admin account exists so the service can be
// used without a database. An existing account with the same ID wins.
func (s *UserService) Bootstrap(id string, credits int) *model.User {
	if existing, err := s.store.GetUser(id); err == nil {
		return existing
	}

	now := time.Now()
	u := &model.User{
		ID:        id,
		Name:      "Bootstrap Admin",
		Role:      model.RoleAdmin,
		Plan:      "agency",
		Credits:   credits,
		Status:    model.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.PutUser(u)
	s.logger.Info("seeded bootstrap account",
		zap.String("user_id", id), zap.Int("credits", credits))
	return u
}

// List returns all accounts, refreshing the store from the database first.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	if s.users != nil {
		persisted, err := s.users.List(ctx)
		if err != nil {
			s.logger.Warn("user list refresh failed", zap.Error(err))
		}
		for _, u := range persisted {
			if _, err := s.store.GetUser(u.ID); errors.Is(err, store.ErrNotFound) {
				s.store.PutUser(u)
			}
		}
	}
	return s.store.ListUsers(), nil
}

// Update applies an admin edit to an account.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUser(id, func(u *model.User) error {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.Plan != nil {
			u.Plan = *req.Plan
		}
		if req.Credits != nil {
			u.Credits = *req.Credits
		}
		if req.Status != nil {
			u.Status = *req.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.archive.SaveUser(ctx, updated); err != nil {
		s.logger.Warn("user persistence failed", zap.String("user_id", id), zap.Error(err))
	}
	return updated, nil
}

// Plans returns the plan catalog.
func (s *UserService) Plans(ctx context.Context) []*model.Plan {
	return s.store.ListPlans()
}

// SavePlan creates or replaces a plan.
func (s *UserService) SavePlan(ctx context.Context, p *model.Plan) *model.Plan {
	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.store.PutPlan(p)
	return p
}

// DeletePlan removes a plan from the catalog.
func (s *UserService) DeletePlan(ctx context.Context, id string) error {
	return s.store.DeletePlan(id)
}
