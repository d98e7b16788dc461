// Package events carries cross-component signals over an in-process
// message bus: authentication changes, user-visible notices,
// navigation, confirmation requests and notification updates.
package events

import (
	messagebus "github.com/vardius/message-bus"
)

const (
	// TopicAuthChanged carries the current *model.User (nil when signed out).
	TopicAuthChanged = "auth:changed"
	// TopicNoticePosted carries a Notice.
	TopicNoticePosted = "notice:posted"
	// TopicRouteChanged carries a Route.
	TopicRouteChanged = "route:changed"
	// TopicConfirmRequested carries a confirm.Request.
	TopicConfirmRequested = "confirm:requested"
	// TopicConfirmResolved carries the ID of the resolved confirm.Request.
	TopicConfirmResolved = "confirm:resolved"
	// TopicNotificationsChanged carries a notification.State.
	TopicNotificationsChanged = "notifications:changed"
)

// queueSize is the per-subscriber handler queue length.
const queueSize = 64

// Bus is the publish side of the message bus.
type Bus interface {
	// Publish sends a message to every subscriber of topic.
	Publish(topic string, args ...any)
}

// NewBus creates the application message bus.
func NewBus() messagebus.MessageBus {
	return messagebus.New(queueSize)
}

// Discard is a Bus that drops every message.
var Discard Bus = discard{}

type discard struct{}

func (discard) Publish(string, ...any) {}
