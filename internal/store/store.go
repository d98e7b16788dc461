package store

import (
	"context"

	"github.com/nhle/leave-management/internal/model"
)

// LeaveList names a cached list of leave applications.
type LeaveList string

const (
	// LeaveListMine is the signed-in user's own applications.
	LeaveListMine LeaveList = "mine"
	// LeaveListApprovals is the applications awaiting the user's decision.
	LeaveListApprovals LeaveList = "approvals"
)

// Store is the local offline cache. It holds the last list the backend
// returned for each user so a new session can show data before the
// first request completes. The backend stays authoritative.
type Store interface {
	// === Notifications ===

	SaveNotifications(ctx context.Context, userID int64, list []model.Notification) error
	LoadNotifications(ctx context.Context, userID int64) ([]model.Notification, error)

	// === Leave applications ===

	SaveLeaveApplications(ctx context.Context, ownerID int64, list LeaveList, apps []model.LeaveApplication) error
	LoadLeaveApplications(ctx context.Context, ownerID int64, list LeaveList) ([]model.LeaveApplication, error)

	// Purge removes every cached row. It runs on sign-out.
	Purge(ctx context.Context) error
}
