// Package confirm lets any caller ask the user a yes/no question and
// block until it is answered. A single dialog exists: one request may
// be pending at a time.
package confirm

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/nhle/leave-management/internal/events"
)

// Severity tags a request so the dialog can style it.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ErrPending is returned by Confirm while another request is waiting
// for an answer.
var ErrPending = errors.New("confirm: another confirmation is pending")

const outsideScope = "confirm: used outside of a controller scope"

// Options describes the question.
type Options struct {
	Title       string
	Message     string
	ConfirmText string
	CancelText  string
	Severity    Severity
}

func (o Options) withDefaults() Options {
	if o.ConfirmText == "" {
		o.ConfirmText = "Confirm"
	}
	if o.CancelText == "" {
		o.CancelText = "Cancel"
	}
	switch o.Severity {
	case SeverityDanger, SeverityWarning, SeverityInfo:
	default:
		o.Severity = SeverityWarning
	}
	return o
}

// Request is a pending question, published on
// events.TopicConfirmRequested.
type Request struct {
	ID string
	Options
}

type pending struct {
	req    Request
	result chan bool
}

// Controller owns the single pending request.
type Controller struct {
	bus events.Bus

	mu      sync.Mutex
	current *pending
}

// NewController creates a Controller that announces requests on bus.
func NewController(bus events.Bus) *Controller {
	return &Controller{bus: bus}
}

// Confirm shows the dialog and blocks until the user answers. It
// returns true for HandleConfirm and false for HandleClose. If ctx ends
// first the request is dismissed and ctx.Err() is returned. While
// another request is pending Confirm returns ErrPending at once and
// leaves that request alone.
func (c *Controller) Confirm(ctx context.Context, opts Options) (bool, error) {
	if c == nil {
		panic(outsideScope)
	}

	p := &pending{
		req:    Request{ID: uuid.NewString(), Options: opts.withDefaults()},
		result: make(chan bool, 1),
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return false, ErrPending
	}
	c.current = p
	c.mu.Unlock()

	c.bus.Publish(events.TopicConfirmRequested, p.req)

	select {
	case ok := <-p.result:
		return ok, nil
	case <-ctx.Done():
		if c.Resolve(p.req.ID, false) {
			return false, ctx.Err()
		}
		// The user answered just as ctx ended.
		return <-p.result, nil
	}
}

// HandleConfirm answers the pending request with true.
func (c *Controller) HandleConfirm() {
	c.Resolve("", true)
}

// HandleClose answers the pending request with false.
func (c *Controller) HandleClose() {
	c.Resolve("", false)
}

// Resolve answers the request with the given ID, or the pending one when
// id is empty. It reports whether a request was resolved; answering a
// request that is no longer pending does nothing.
func (c *Controller) Resolve(id string, ok bool) bool {
	c.mu.Lock()
	p := c.current
	if p == nil || (id != "" && id != p.req.ID) {
		c.mu.Unlock()
		return false
	}
	c.current = nil
	c.mu.Unlock()

	p.result <- ok
	c.bus.Publish(events.TopicConfirmResolved, p.req.ID)
	return true
}

// Pending returns the request awaiting an answer, if any.
func (c *Controller) Pending() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Request{}, false
	}
	return c.current.req, true
}

type ctxKey struct{}

// WithController returns a context carrying c.
func WithController(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the controller carried by ctx. It panics when
// there is none.
func FromContext(ctx context.Context) *Controller {
	c, ok := ctx.Value(ctxKey{}).(*Controller)
	if !ok || c == nil {
		panic(outsideScope)
	}
	return c
}

// Ask is shorthand for FromContext(ctx).Confirm(ctx, opts).
func Ask(ctx context.Context, opts Options) (bool, error) {
	return FromContext(ctx).Confirm(ctx, opts)
}
