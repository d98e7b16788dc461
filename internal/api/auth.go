package api

import (
	"context"
	"fmt"

	"github.com/nhle/leave-management/internal/model"
)

// AuthService wraps the /auth endpoints. It does not persist anything;
// callers hand the response to the auth manager.
type AuthService struct {
	client *Client
}

// NewAuthService creates an AuthService.
func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

// Login exchanges credentials for a session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := s.client.Post(ctx, "/auth/login", req, &resp); err != nil {
		return model.AuthResponse{}, fmt.Errorf("logging in: %w", err)
	}
	return resp, nil
}

// Register creates an account and returns the backend's confirmation message.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return "", fmt.Errorf("registering: %w", err)
	}
	return resp.Message, nil
}

// MicrosoftAuth exchanges a verified Microsoft identity for a session.
func (s *AuthService) MicrosoftAuth(ctx context.Context, req model.MicrosoftAuthRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := s.client.Post(ctx, "/auth/microsoft", req, &resp); err != nil {
		return model.AuthResponse{}, fmt.Errorf("exchanging microsoft identity: %w", err)
	}
	return resp, nil
}
