package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shinyyama/inventory-backend/internal/logging"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/repository"
)

// Identity is what the auth provider vouches for on a request.
type Identity struct {
	AuthUID string
	Email   string
	Name    string
	Image   string
}

type UserService interface {
	// Ensure creates the user on first sight and afterwards merges non-empty identity fields.
	Ensure(ctx context.Context, id Identity) (*model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
}

type userService struct {
	users        repository.UserRepository
	defaultLimit int
	log          *zap.Logger
}

func NewUserService(users repository.UserRepository, defaultAILimit int, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{users: users, defaultLimit: defaultAILimit, log: log}
}

func (s *userService) Ensure(ctx context.Context, id Identity) (*model.User, error) {
	id.AuthUID = strings.TrimSpace(id.AuthUID)
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))
	id.Name = strings.TrimSpace(id.Name)
	id.Image = strings.TrimSpace(id.Image)
	if id.AuthUID == "" {
		return nil, fmt.Errorf("ensure user: empty auth uid")
	}

	u, err := s.users.FindByAuthUID(ctx, id.AuthUID)
	if repository.IsNotFound(err) && id.Email != "" {
		// same person re-registered at the provider
		u, err = s.users.FindByEmail(ctx, id.Email)
	}
	switch {
	case err == nil:
		return s.merge(ctx, u, id)
	case !repository.IsNotFound(err):
		return nil, wrapInternal(err)
	}

	u = &model.User{
		AuthUID:          id.AuthUID,
		Email:            id.Email,
		AIUsageLimit:     s.defaultLimit,
		SubscriptionTier: model.TierFree,
	}
	if u.Email == "" {
		u.Email = id.AuthUID + "@users.noreply.invalid"
	}
	if id.Name != "" {
		u.Name = &id.Name
	}
	if id.Image != "" {
		u.Image = &id.Image
	}
	if err := s.users.Create(ctx, u); err != nil {
		// a concurrent first request may have inserted the row already
		if existing, findErr := s.users.FindByAuthUID(ctx, id.AuthUID); findErr == nil {
			return s.merge(ctx, existing, id)
		}
		return nil, wrapInternal(err)
	}
	logging.FromContext(ctx, s.log).Info("user created", zap.Uint64("user_id", u.ID))
	return u, nil
}

func (s *userService) merge(ctx context.Context, u *model.User, id Identity) (*model.User, error) {
	fields := map[string]interface{}{}
	if u.AuthUID != id.AuthUID {
		fields["auth_uid"] = id.AuthUID
		u.AuthUID = id.AuthUID
	}
	if id.Email != "" && id.Email != u.Email {
		fields["email"] = id.Email
		u.Email = id.Email
	}
	if id.Name != "" && (u.Name == nil || *u.Name != id.Name) {
		fields["name"] = id.Name
		u.Name = &id.Name
	}
	if id.Image != "" && (u.Image == nil || *u.Image != id.Image) {
		fields["image"] = id.Image
		u.Image = &id.Image
	}
	if len(fields) == 0 {
		return u, nil
	}
	if err := s.users.UpdateFields(ctx, u.ID, fields); err != nil {
		return nil, wrapInternal(err)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, msgUserNotFound)
	}
	return u, nil
}
