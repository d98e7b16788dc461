package app

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leave-management/internal/confirm"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/notification"
)

// AuthChangedMsg is delivered when the signed-in user changes. User is
// nil after sign-out.
type AuthChangedMsg struct {
	User *model.User
}

// NoticeMsg is a user-visible notice.
type NoticeMsg events.Notice

// RouteMsg asks the UI to switch screens.
type RouteMsg events.Route

// ConfirmRequestedMsg asks the UI to show the confirmation dialog.
type ConfirmRequestedMsg confirm.Request

// ConfirmResolvedMsg reports that a confirmation request was answered.
type ConfirmResolvedMsg string

// NotificationsMsg carries the notification center's latest state.
type NotificationsMsg notification.State

// Subscriber is the subscribe side of the message bus.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
	Unsubscribe(topic string, fn interface{}) error
}

type subscription struct {
	topic string
	fn    interface{}
}

// BusBridge forwards bus messages into the Bubble Tea program as
// tea.Msg values.
type BusBridge struct {
	bus  Subscriber
	subs []subscription
}

// Bridge subscribes send to every UI-relevant topic on bus.
func Bridge(bus Subscriber, send func(tea.Msg)) (*BusBridge, error) {
	b := &BusBridge{bus: bus}
	b.subs = []subscription{
		{events.TopicAuthChanged, func(u *model.User) { send(AuthChangedMsg{User: u}) }},
		{events.TopicNoticePosted, func(n events.Notice) { send(NoticeMsg(n)) }},
		{events.TopicRouteChanged, func(r events.Route) { send(RouteMsg(r)) }},
		{events.TopicConfirmRequested, func(r confirm.Request) { send(ConfirmRequestedMsg(r)) }},
		{events.TopicConfirmResolved, func(id string) { send(ConfirmResolvedMsg(id)) }},
		{events.TopicNotificationsChanged, func(s notification.State) { send(NotificationsMsg(s)) }},
	}

	for i, s := range b.subs {
		if err := bus.Subscribe(s.topic, s.fn); err != nil {
			b.subs = b.subs[:i]
			return nil, errors.Join(fmt.Errorf("subscribing to %s: %w", s.topic, err), b.Close())
		}
	}
	return b, nil
}

// Close removes every subscription.
func (b *BusBridge) Close() error {
	var errs []error
	for _, s := range b.subs {
		if err := b.bus.Unsubscribe(s.topic, s.fn); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing from %s: %w", s.topic, err))
		}
	}
	b.subs = nil
	return errors.Join(errs...)
}
