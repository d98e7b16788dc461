package model

import "encoding/json"

// NotificationType classifies a notification by the leave-lifecycle
// event that produced it.
type NotificationType string

const (
	NotificationLeaveRequest      NotificationType = "LEAVE_REQUEST"
	NotificationLeaveApproval     NotificationType = "LEAVE_APPROVAL"
	NotificationLeaveRejection    NotificationType = "LEAVE_REJECTION"
	NotificationLeaveCancellation NotificationType = "LEAVE_CANCELLATION"
	NotificationBalanceUpdate     NotificationType = "BALANCE_UPDATE"
	NotificationGeneral           NotificationType = "GENERAL"
)

// Notification is a server-originated message about a leave-lifecycle
// event, shown to the user with read/unread state.
type Notification struct {
	// ID is the backend identifier for this notification.
	ID int64 `json:"id"`

	// UserID is the recipient.
	UserID int64 `json:"userId"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Type identifies the event that produced this notification.
	Type NotificationType `json:"type"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when the backend generated this notification.
	CreatedAt Timestamp `json:"createdAt"`

	// ActionURL optionally points at the screen the notification refers to.
	ActionURL string `json:"actionUrl,omitempty"`

	// ActionText is the label for ActionURL.
	ActionText string `json:"actionText,omitempty"`

	// Data is an opaque payload attached by the backend.
	Data json.RawMessage `json:"data,omitempty"`
}

// CountUnread returns the number of unread entries in list.
func CountUnread(list []Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
