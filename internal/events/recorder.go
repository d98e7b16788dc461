package events

import "sync"

// Message is a single published bus message.
type Message struct {
	Topic string
	Args  []any
}

// Recorder is a synchronous Bus that keeps every message, for tests
// and for wiring components without a running bus.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Publish implements Bus.
func (r *Recorder) Publish(topic string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Args: args})
}

// Messages returns the messages published on topic, oldest first.
func (r *Recorder) Messages(topic string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Notices returns every Notice published so far.
func (r *Recorder) Notices() []Notice {
	var out []Notice
	for _, m := range r.Messages(TopicNoticePosted) {
		if len(m.Args) == 0 {
			continue
		}
		if n, ok := m.Args[0].(Notice); ok {
			out = append(out, n)
		}
	}
	return out
}

// Routes returns every Route published so far.
func (r *Recorder) Routes() []Route {
	var out []Route
	for _, m := range r.Messages(TopicRouteChanged) {
		if len(m.Args) == 0 {
			continue
		}
		if route, ok := m.Args[0].(Route); ok {
			out = append(out, route)
		}
	}
	return out
}
