package api

import (
	"context"
	"fmt"

	"github.com/nhle/leave-management/internal/model"
)

// NotificationService wraps the /notifications endpoints for the
// signed-in user.
type NotificationService struct {
	client *Client
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(client *Client) *NotificationService {
	return &NotificationService{client: client}
}

type successResponse struct {
	Success bool `json:"success"`
}

// List returns every notification, newest first.
func (s *NotificationService) List(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := s.client.Get(ctx, "/notifications", nil, &out); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// ListUnread returns only unread notifications.
func (s *NotificationService) ListUnread(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := s.client.Get(ctx, "/notifications/unread", nil, &out); err != nil {
		return nil, fmt.Errorf("listing unread notifications: %w", err)
	}
	return out, nil
}

// UnreadCount returns the server-side unread count.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.client.Get(ctx, "/notifications/count", nil, &resp); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return resp.Count, nil
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) (bool, error) {
	var resp successResponse
	if err := s.client.Put(ctx, fmt.Sprintf("/notifications/%d/read", id), nil, &resp); err != nil {
		return false, fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return resp.Success, nil
}

// MarkAllRead marks every notification as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) (bool, error) {
	var resp successResponse
	if err := s.client.Put(ctx, "/notifications/read-all", nil, &resp); err != nil {
		return false, fmt.Errorf("marking all notifications read: %w", err)
	}
	return resp.Success, nil
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, id int64) (bool, error) {
	var resp successResponse
	if err := s.client.Delete(ctx, fmt.Sprintf("/notifications/%d", id), &resp); err != nil {
		return false, fmt.Errorf("deleting notification %d: %w", id, err)
	}
	return resp.Success, nil
}
