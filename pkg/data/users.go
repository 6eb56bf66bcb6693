package data

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solbank/pkg/model"
	"solbank/pkg/repo"
)

// CurrentUser returns the signed-in user, backend-first.
func (s *Service) CurrentUser(ctx context.Context) (model.User, error) {
	if s.Online() {
		user, err := s.remote.GetCurrentUser(ctx)
		if err == nil {
			if cacheErr := s.repos.Users.SetCurrent(ctx, &user); cacheErr != nil {
				s.logger.Warn("cache current user", zap.Error(cacheErr))
			}
			return user, nil
		}
		s.degrade(ctx, "users", err)
	}
	return s.repos.Users.Current(ctx)
}

// UpdateUser applies a profile update locally, then pushes or queues it.
func (s *Service) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	updated, err := s.repos.Users.Update(ctx, user)
	if err != nil {
		return model.User{}, err
	}
	s.pushOrEnqueue(ctx, "users",
		func() error { _, err := s.remote.UpdateUser(ctx, updated); return err },
		func() { s.queue.EnqueueUpdateUser(ctx, updated) })
	return updated, nil
}

// SignIn resolves the wallet address to a local user, creating one on first
// sight, and marks it current.
func (s *Service) SignIn(ctx context.Context, walletAddress, name string) (model.User, error) {
	user, err := s.repos.Users.ByWalletAddress(ctx, walletAddress)
	if errors.Is(err, repo.ErrNotFound) {
		user, err = s.repos.Users.Create(ctx, model.User{
			Name:          name,
			WalletAddress: walletAddress,
		})
	}
	if err != nil {
		return model.User{}, err
	}
	if err := s.repos.Users.SetCurrent(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// SignOut clears the current user.
func (s *Service) SignOut(ctx context.Context) error {
	return s.repos.Users.SetCurrent(ctx, nil)
}
