package events

import "time"

// Level is the severity of a user-visible notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient message shown to the user, the terminal
// equivalent of a toast.
type Notice struct {
	Level    Level
	Text     string
	PostedAt time.Time
}

// Notifier posts user-visible notices.
type Notifier interface {
	Info(text string)
	Success(text string)
	Error(text string)
}

// BusNotifier publishes notices on TopicNoticePosted.
type BusNotifier struct {
	bus Bus
}

// NewNotifier returns a Notifier publishing to bus.
func NewNotifier(bus Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Info(text string)    { n.post(LevelInfo, text) }
func (n *BusNotifier) Success(text string) { n.post(LevelSuccess, text) }
func (n *BusNotifier) Error(text string)   { n.post(LevelError, text) }

func (n *BusNotifier) post(level Level, text string) {
	n.bus.Publish(TopicNoticePosted, Notice{
		Level:    level,
		Text:     text,
		PostedAt: time.Now(),
	})
}
