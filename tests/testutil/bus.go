package testutil

import (
	"testing"

	messagebus "github.com/vardius/message-bus"

	"github.com/nhle/leave-management/internal/events"
)

// NewTestBus returns a real asynchronous message bus. Handlers run on
// their own goroutines, so assertions on their effects need
// assert.Eventually.
func NewTestBus(t *testing.T) messagebus.MessageBus {
	t.Helper()
	return events.NewBus()
}

// NewRecorder returns a synchronous bus that keeps every message.
func NewRecorder(t *testing.T) *events.Recorder {
	t.Helper()
	return &events.Recorder{}
}
