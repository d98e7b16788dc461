package api

import (
	"context"
	"fmt"

	"github.com/nhle/leave-management/internal/model"
)

// LeaveBalanceService wraps the read side of /leave-balances.
type LeaveBalanceService struct {
	client *Client
}

// NewLeaveBalanceService creates a LeaveBalanceService.
func NewLeaveBalanceService(client *Client) *LeaveBalanceService {
	return &LeaveBalanceService{client: client}
}

// ListByUserAndYear returns userID's balances for year.
func (s *LeaveBalanceService) ListByUserAndYear(ctx context.Context, userID int64, year int) ([]model.LeaveBalance, error) {
	var out []model.LeaveBalance
	path := fmt.Sprintf("/leave-balances/user/%d/year/%d", userID, year)
	if err := s.client.Get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("listing %d leave balances for user %d: %w", year, userID, err)
	}
	return out, nil
}

// UserService wraps the self-service /users endpoints.
type UserService struct {
	client *Client
}

// NewUserService creates a UserService.
func NewUserService(client *Client) *UserService {
	return &UserService{client: client}
}

// Me returns the signed-in user's profile.
func (s *UserService) Me(ctx context.Context) (model.Profile, error) {
	var out model.Profile
	if err := s.client.Get(ctx, "/users/me/profile", nil, &out); err != nil {
		return model.Profile{}, fmt.Errorf("getting profile: %w", err)
	}
	return out, nil
}

// UpdateProfile changes the editable profile fields of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.Profile, error) {
	var out model.Profile
	if err := s.client.Put(ctx, fmt.Sprintf("/users/%d/profile", userID), req, &out); err != nil {
		return model.Profile{}, fmt.Errorf("updating profile of user %d: %w", userID, err)
	}
	return out, nil
}
