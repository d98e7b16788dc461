// Package notification keeps a near-real-time view of the signed-in
// user's notifications. The Center polls the backend while a session is
// active and resets to an empty state when it ends.
package notification

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
)

// DefaultPollInterval is how often notifications are refreshed.
const DefaultPollInterval = 60 * time.Second

// fetchTimeout bounds one list+count round trip.
const fetchTimeout = 30 * time.Second

// ErrNotAuthenticated is returned by mutations while signed out.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrSessionEnded is returned by a mutation whose session ended while
// the backend call was in flight. The result is not applied.
var ErrSessionEnded = errors.New("session ended during the request")

// errNotAcknowledged is returned when the backend answers success=false.
var errNotAcknowledged = errors.New("backend did not acknowledge the change")

// Service is the backend notification API.
type Service interface {
	List(ctx context.Context) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) (bool, error)
	MarkAllRead(ctx context.Context) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Cache persists the last good notification list per user so that a
// new session has something to show before the first fetch returns.
type Cache interface {
	LoadNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	SaveNotifications(ctx context.Context, userID int64, list []model.Notification) error
}

// Phase is the Center's lifecycle state.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseFetching
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// State is a snapshot of the Center, published on
// events.TopicNotificationsChanged after every change.
type State struct {
	Phase         Phase
	Notifications []model.Notification
	UnreadCount   int
	Loading       bool
	LastFetched   time.Time
}

// Option configures a Center.
type Option func(*Center)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithCache enables the offline cache.
func WithCache(cache Cache) Option {
	return func(c *Center) { c.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Center) { c.log = log.With().Str("component", "notifications").Logger() }
}

// Center owns the notification list and unread count for the current
// session.
type Center struct {
	svc      Service
	cache    Cache
	bus      events.Bus
	notifier events.Notifier
	log      zerolog.Logger
	interval time.Duration

	mu            sync.Mutex
	state         State
	authenticated bool
	userID        int64
	// generation changes on every sign-in and sign-out; results of a
	// fetch started under an older generation are dropped.
	generation uint64
	// seq numbers fetches; applied is the newest one whose result is
	// in state.
	seq     uint64
	applied uint64
	poller  *poller
}

// NewCenter creates a Center in the unauthenticated state.
func NewCenter(svc Service, bus events.Bus, opts ...Option) *Center {
	c := &Center{
		svc:      svc,
		bus:      bus,
		notifier: events.NewNotifier(bus),
		log:      zerolog.Nop(),
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleAuthChanged follows the auth manager: a non-nil user starts a
// session for that user, nil ends it. Switching directly between two
// users restarts the session.
func (c *Center) HandleAuthChanged(user *model.User) {
	if user == nil {
		c.SetAuthenticated(false)
		return
	}

	c.mu.Lock()
	switched := c.authenticated && c.userID != user.ID
	c.mu.Unlock()
	if switched {
		c.SetAuthenticated(false)
	}

	c.mu.Lock()
	c.userID = user.ID
	c.mu.Unlock()
	c.SetAuthenticated(true)
}

// SetAuthenticated moves the Center into or out of a session. Entering
// a session fetches immediately and arms the poll timer. Leaving it
// resets the state and returns only after the poll goroutine has
// exited, so no fetch runs for a signed-out session.
func (c *Center) SetAuthenticated(authenticated bool) {
	c.mu.Lock()
	if c.authenticated == authenticated {
		c.mu.Unlock()
		return
	}

	c.authenticated = authenticated
	c.generation++

	if authenticated {
		c.state = State{Phase: PhaseFetching, Loading: true}
		gen := c.generation
		c.poller = startPoller(c.interval, func(ctx context.Context) {
			c.poll(ctx, gen)
		})
		snapshot := c.snapshotLocked()
		c.mu.Unlock()

		c.log.Debug().Dur("interval", c.interval).Msg("notification polling started")
		c.publish(snapshot)
		return
	}

	p := c.poller
	c.poller = nil
	c.userID = 0
	c.state = State{Phase: PhaseUnauthenticated}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if p != nil {
		p.stop()
	}
	c.log.Debug().Msg("notification polling stopped")
	c.publish(snapshot)
}

// Stop ends polling. It is equivalent to SetAuthenticated(false) and is
// meant for shutdown.
func (c *Center) Stop() {
	c.SetAuthenticated(false)
}

// Refresh asks the poll goroutine for an immediate fetch.
func (c *Center) Refresh() {
	c.mu.Lock()
	p := c.poller
	c.mu.Unlock()
	if p != nil {
		p.trigger()
	}
}

// poll is one timer-driven fetch. The first poll of a session seeds the
// state from the cache.
func (c *Center) poll(ctx context.Context, gen uint64) {
	c.seedFromCache(ctx, gen)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	_ = c.FetchNotifications(ctx)
}

func (c *Center) seedFromCache(ctx context.Context, gen uint64) {
	if c.cache == nil {
		return
	}

	c.mu.Lock()
	if c.generation != gen || c.state.Phase != PhaseFetching {
		c.mu.Unlock()
		return
	}
	userID := c.userID
	c.mu.Unlock()

	list, err := c.cache.LoadNotifications(ctx, userID)
	if err != nil {
		c.log.Warn().Err(err).Msg("loading cached notifications")
		return
	}
	if len(list) == 0 {
		return
	}

	c.mu.Lock()
	if c.generation != gen || c.state.Phase != PhaseFetching {
		c.mu.Unlock()
		return
	}
	c.state.Notifications = list
	c.state.UnreadCount = model.CountUnread(list)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot)
}

// FetchNotifications requests the list and the unread count together
// and replaces the state once both succeed. It is a no-op while signed
// out. On failure the existing state is kept and the error is logged
// and returned.
func (c *Center) FetchNotifications(ctx context.Context) error {
	c.mu.Lock()
	if !c.authenticated {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	c.seq++
	seq := c.seq
	userID := c.userID
	c.state.Loading = true
	c.mu.Unlock()

	var (
		list  []model.Notification
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.svc.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.svc.UnreadCount(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug().Uint64("seq", seq).Msg("dropping fetch from an ended session")
		return nil
	}
	if err != nil {
		c.state.Loading = false
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("fetching notifications")
		return err
	}
	if seq < c.applied {
		c.mu.Unlock()
		c.log.Debug().Uint64("seq", seq).Uint64("applied", c.applied).Msg("dropping stale fetch")
		return nil
	}

	c.applied = seq
	c.state = State{
		Phase:         PhaseReady,
		Notifications: list,
		UnreadCount:   max(0, count),
		LastFetched:   time.Now(),
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.saveCache(ctx, userID, list)
	c.publish(snapshot)
	return nil
}

// MarkAsRead marks one notification read once the backend confirms.
func (c *Center) MarkAsRead(ctx context.Context, id int64) error {
	gen, ok := c.session()
	if !ok {
		return ErrNotAuthenticated
	}

	ok, err := c.svc.MarkRead(ctx, id)
	if err != nil {
		c.log.Error().Err(err).Int64("id", id).Msg("marking notification read")
		c.notifyError(gen, "Failed to mark notification as read")
		return err
	}
	if !ok {
		return errNotAcknowledged
	}

	return c.update(gen, func(s *State) {
		for i := range s.Notifications {
			if s.Notifications[i].ID == id {
				s.Notifications[i].Read = true
			}
		}
		s.UnreadCount = max(0, s.UnreadCount-1)
	})
}

// MarkAllAsRead marks every notification read once the backend confirms.
func (c *Center) MarkAllAsRead(ctx context.Context) error {
	gen, ok := c.session()
	if !ok {
		return ErrNotAuthenticated
	}

	ok, err := c.svc.MarkAllRead(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("marking all notifications read")
		c.notifyError(gen, "Failed to mark all notifications as read")
		return err
	}
	if !ok {
		return errNotAcknowledged
	}

	if err := c.update(gen, func(s *State) {
		for i := range s.Notifications {
			s.Notifications[i].Read = true
		}
		s.UnreadCount = 0
	}); err != nil {
		return err
	}
	c.notifier.Success("All notifications marked as read")
	return nil
}

// DeleteNotification removes one notification once the backend confirms.
func (c *Center) DeleteNotification(ctx context.Context, id int64) error {
	gen, ok := c.session()
	if !ok {
		return ErrNotAuthenticated
	}

	ok, err := c.svc.Delete(ctx, id)
	if err != nil {
		c.log.Error().Err(err).Int64("id", id).Msg("deleting notification")
		c.notifyError(gen, "Failed to delete notification")
		return err
	}
	if !ok {
		return errNotAcknowledged
	}

	if err := c.update(gen, func(s *State) {
		idx := slices.IndexFunc(s.Notifications, func(n model.Notification) bool { return n.ID == id })
		if idx < 0 {
			return
		}
		wasUnread := !s.Notifications[idx].Read
		s.Notifications = slices.Delete(s.Notifications, idx, idx+1)
		if wasUnread {
			s.UnreadCount = max(0, s.UnreadCount-1)
		}
	}); err != nil {
		return err
	}
	c.notifier.Success("Notification deleted")
	return nil
}

// session returns the current generation and whether a session is
// active.
func (c *Center) session() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, c.authenticated
}

// notifyError posts msg unless the session that failed has ended.
func (c *Center) notifyError(gen uint64, msg string) {
	c.mu.Lock()
	current := c.authenticated && c.generation == gen
	c.mu.Unlock()
	if current {
		c.notifier.Error(msg)
	}
}

// update applies fn to the state and publishes the result, provided the
// session of generation gen is still the active one.
func (c *Center) update(gen uint64, fn func(s *State)) error {
	c.mu.Lock()
	if !c.authenticated || c.generation != gen {
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("dropping mutation from an ended session")
		return ErrSessionEnded
	}
	c.state.Notifications = slices.Clone(c.state.Notifications)
	fn(&c.state)
	snapshot := c.snapshotLocked()
	userID := c.userID
	c.mu.Unlock()

	c.saveCache(context.Background(), userID, snapshot.Notifications)
	c.publish(snapshot)
	return nil
}

// IsAuthenticated reports whether a session is active.
func (c *Center) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Snapshot returns a copy of the current state.
func (c *Center) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// UnreadCount returns the current unread count.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.UnreadCount
}

func (c *Center) snapshotLocked() State {
	s := c.state
	s.Notifications = slices.Clone(c.state.Notifications)
	return s
}

func (c *Center) saveCache(ctx context.Context, userID int64, list []model.Notification) {
	if c.cache == nil || userID == 0 {
		return
	}
	if err := c.cache.SaveNotifications(context.WithoutCancel(ctx), userID, list); err != nil {
		c.log.Warn().Err(err).Msg("caching notifications")
	}
}

func (c *Center) publish(s State) {
	c.bus.Publish(events.TopicNotificationsChanged, s)
}
