package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/leave-management/internal/model"
)

// LeaveService wraps the /leave-applications endpoints. Approval rules,
// balances and day counting live in the backend; this client only
// relays them.
type LeaveService struct {
	client *Client
}

// NewLeaveService creates a LeaveService.
func NewLeaveService(client *Client) *LeaveService {
	return &LeaveService{client: client}
}

type statusUpdate struct {
	Status model.LeaveStatus `json:"status"`
	Reason string            `json:"reason,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func dateRange(start, end model.Date) url.Values {
	q := url.Values{}
	q.Set("startDate", start.String())
	q.Set("endDate", end.String())
	return q
}

// ListByUser returns every application submitted by userID.
func (s *LeaveService) ListByUser(ctx context.Context, userID int64) ([]model.LeaveApplication, error) {
	var out []model.LeaveApplication
	if err := s.client.Get(ctx, fmt.Sprintf("/leave-applications/user/%d", userID), nil, &out); err != nil {
		return nil, fmt.Errorf("listing leave applications for user %d: %w", userID, err)
	}
	return out, nil
}

// ListByUserAndStatus filters ListByUser by status.
func (s *LeaveService) ListByUserAndStatus(ctx context.Context, userID int64, status model.LeaveStatus) ([]model.LeaveApplication, error) {
	var out []model.LeaveApplication
	path := fmt.Sprintf("/leave-applications/user/%d/status/%s", userID, status)
	if err := s.client.Get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("listing %s leave applications for user %d: %w", status, userID, err)
	}
	return out, nil
}

// PendingApprovals returns the applications waiting on approverID.
func (s *LeaveService) PendingApprovals(ctx context.Context, approverID int64) ([]model.LeaveApplication, error) {
	var out []model.LeaveApplication
	if err := s.client.Get(ctx, fmt.Sprintf("/leave-applications/pending-approvals/%d", approverID), nil, &out); err != nil {
		return nil, fmt.Errorf("listing pending approvals for %d: %w", approverID, err)
	}
	return out, nil
}

// Get returns one application.
func (s *LeaveService) Get(ctx context.Context, id int64) (model.LeaveApplication, error) {
	var out model.LeaveApplication
	if err := s.client.Get(ctx, fmt.Sprintf("/leave-applications/%d", id), nil, &out); err != nil {
		return model.LeaveApplication{}, fmt.Errorf("getting leave application %d: %w", id, err)
	}
	return out, nil
}

// Create submits a new application.
func (s *LeaveService) Create(ctx context.Context, req model.LeaveApplicationRequest) (model.LeaveApplication, error) {
	var out model.LeaveApplication
	if err := s.client.Post(ctx, "/leave-applications", req, &out); err != nil {
		return model.LeaveApplication{}, fmt.Errorf("creating leave application: %w", err)
	}
	return out, nil
}

// Cancel withdraws an application.
func (s *LeaveService) Cancel(ctx context.Context, id int64, reason string) (model.LeaveApplication, error) {
	var out model.LeaveApplication
	if err := s.client.Put(ctx, fmt.Sprintf("/leave-applications/%d/cancel", id), cancelRequest{Reason: reason}, &out); err != nil {
		return model.LeaveApplication{}, fmt.Errorf("cancelling leave application %d: %w", id, err)
	}
	return out, nil
}

// Approve approves an application. An empty comment becomes "Approved".
func (s *LeaveService) Approve(ctx context.Context, id int64, comment string) (model.LeaveApplication, error) {
	if comment == "" {
		comment = "Approved"
	}
	return s.updateStatus(ctx, id, model.LeaveStatusApproved, comment)
}

// Reject rejects an application. An empty comment becomes "Rejected".
func (s *LeaveService) Reject(ctx context.Context, id int64, comment string) (model.LeaveApplication, error) {
	if comment == "" {
		comment = "Rejected"
	}
	return s.updateStatus(ctx, id, model.LeaveStatusRejected, comment)
}

func (s *LeaveService) updateStatus(ctx context.Context, id int64, status model.LeaveStatus, reason string) (model.LeaveApplication, error) {
	var out model.LeaveApplication
	body := statusUpdate{Status: status, Reason: reason}
	if err := s.client.Put(ctx, fmt.Sprintf("/leave-applications/%d/status", id), body, &out); err != nil {
		return model.LeaveApplication{}, fmt.Errorf("setting leave application %d to %s: %w", id, status, err)
	}
	return out, nil
}

// CalculateBusinessDays asks the backend how many working days the
// inclusive range covers.
func (s *LeaveService) CalculateBusinessDays(ctx context.Context, start, end model.Date) (float64, error) {
	var days float64
	if err := s.client.Get(ctx, "/leave-applications/calculate-days", dateRange(start, end), &days); err != nil {
		return 0, fmt.Errorf("calculating business days: %w", err)
	}
	return days, nil
}

// CheckBalance reports whether userID has enough balance of leaveTypeID
// for the range.
func (s *LeaveService) CheckBalance(ctx context.Context, userID, leaveTypeID int64, start, end model.Date) (bool, error) {
	q := dateRange(start, end)
	q.Set("userId", strconv.FormatInt(userID, 10))
	q.Set("leaveTypeId", strconv.FormatInt(leaveTypeID, 10))

	var ok bool
	if err := s.client.Get(ctx, "/leave-applications/check-balance", q, &ok); err != nil {
		return false, fmt.Errorf("checking leave balance: %w", err)
	}
	return ok, nil
}

// Overlapping returns userID's applications that intersect the range.
func (s *LeaveService) Overlapping(ctx context.Context, userID int64, start, end model.Date) ([]model.LeaveApplication, error) {
	q := dateRange(start, end)
	q.Set("userId", strconv.FormatInt(userID, 10))

	var out []model.LeaveApplication
	if err := s.client.Get(ctx, "/leave-applications/overlapping", q, &out); err != nil {
		return nil, fmt.Errorf("listing overlapping leave: %w", err)
	}
	return out, nil
}

// LeaveTypeService wraps the /leave-types endpoints.
type LeaveTypeService struct {
	client *Client
}

// NewLeaveTypeService creates a LeaveTypeService.
func NewLeaveTypeService(client *Client) *LeaveTypeService {
	return &LeaveTypeService{client: client}
}

// List returns every leave type.
func (s *LeaveTypeService) List(ctx context.Context) ([]model.LeaveType, error) {
	var out []model.LeaveType
	if err := s.client.Get(ctx, "/leave-types", nil, &out); err != nil {
		return nil, fmt.Errorf("listing leave types: %w", err)
	}
	return out, nil
}
