// Package auth is the single source of truth for who is signed in. The
// Manager derives the current user from the persisted session fields
// and announces every change on the event bus.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/session"
)

// ErrCredentialsRequired is returned by Login when email or password is blank.
var ErrCredentialsRequired = errors.New("email and password are required")

// Service is the backend authentication API used by the Manager.
type Service interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (string, error)
}

// Manager tracks the authenticated user.
type Manager struct {
	storage  session.Storage
	service  Service
	bus      events.Bus
	notifier events.Notifier
	nav      events.Navigator
	log      zerolog.Logger

	mu      sync.RWMutex
	user    *model.User
	loading bool
}

// NewManager creates a Manager reading the session from storage. The
// manager starts in the loading state until Initialize runs.
func NewManager(storage session.Storage, service Service, bus events.Bus, log zerolog.Logger) *Manager {
	return &Manager{
		storage:  storage,
		service:  service,
		bus:      bus,
		notifier: events.NewNotifier(bus),
		nav:      events.NewNavigator(bus),
		log:      log.With().Str("component", "auth").Logger(),
		loading:  true,
	}
}

// Initialize loads the persisted session and clears the loading flag.
// It performs no network I/O.
func (m *Manager) Initialize() {
	m.setLoading(true)
	m.RefreshUser()
	m.setLoading(false)
}

// RefreshUser re-reads the persisted session and publishes the result.
// It reports whether a user is now signed in.
func (m *Manager) RefreshUser() bool {
	user := m.readUser()

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	m.bus.Publish(events.TopicAuthChanged, cloneUser(user))
	return user != nil
}

// readUser builds a User from storage. Anything short of a token plus
// a numeric user ID is treated as signed out.
func (m *Manager) readUser() *model.User {
	fields, err := session.Load(m.storage)
	if err != nil {
		m.log.Error().Err(err).Msg("reading session")
		return nil
	}
	if !fields.HasToken() {
		return nil
	}

	id, err := fields.ParseUserID()
	if err != nil {
		m.log.Warn().Err(err).Msg("ignoring session with invalid user id")
		return nil
	}

	roles, err := session.ParseRoles(fields.Roles)
	if err != nil {
		m.log.Warn().Err(err).Msg("malformed roles in session, continuing without roles")
	}

	return &model.User{
		ID:                id,
		FirstName:         fields.FirstName,
		LastName:          fields.LastName,
		Email:             fields.Email,
		Roles:             roles,
		ProfilePictureURL: fields.ProfilePictureURL,
	}
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.user)
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// IsLoading reports whether Initialize has not completed yet.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// HasRole reports whether the signed-in user holds role. It is false
// while signed out.
func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return false
	}
	return slices.Contains(m.user.Roles, role)
}

// HasAnyRole reports whether the signed-in user holds any of roles.
func (m *Manager) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if m.HasRole(r) {
			return true
		}
	}
	return false
}

// Logout clears every persisted session field and the published user,
// posts a notice and navigates to the login screen. The in-memory
// state is cleared even if some fields could not be removed.
func (m *Manager) Logout() error {
	err := session.Clear(m.storage)
	if err != nil {
		m.log.Error().Err(err).Msg("clearing session")
	}

	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	m.bus.Publish(events.TopicAuthChanged, (*model.User)(nil))
	m.notifier.Success("Logged out successfully")
	m.nav.Navigate(events.RouteLogin)

	m.log.Info().Msg("logged out")
	return err
}

// Login signs in with email and password, persists the session and
// navigates to the dashboard.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}

	resp, err := m.service.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := m.EstablishSession(resp); err != nil {
		return err
	}

	m.notifier.Success("Login successful!")
	m.nav.Navigate(events.RouteDashboard)
	return nil
}

// Register creates an account and returns the backend's confirmation
// message. It does not sign in.
func (m *Manager) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	msg, err := m.service.Register(ctx, req)
	if err != nil {
		return "", err
	}
	if msg == "" {
		msg = "Registration successful! Please login."
	}
	return msg, nil
}

// EstablishSession persists a successful authentication response and
// refreshes the published user. A response the manager cannot turn
// into a signed-in user is rolled back.
func (m *Manager) EstablishSession(resp model.AuthResponse) error {
	if err := session.Save(m.storage, resp); err != nil {
		if !errors.Is(err, session.ErrOptionalFieldNotStored) {
			_ = session.Clear(m.storage)
			return fmt.Errorf("establishing session: %w", err)
		}
		m.log.Warn().Err(err).Msg("session stored without optional fields")
	}
	if !m.RefreshUser() {
		_ = session.Clear(m.storage)
		return errors.New("establishing session: response did not identify a user")
	}

	m.log.Info().Int64("user_id", resp.UserID).Msg("session established")
	return nil
}

// ApplyProfile stores the result of a profile edit in the session and
// republishes the user.
func (m *Manager) ApplyProfile(p model.Profile) error {
	if err := session.UpdateProfile(m.storage, p); err != nil {
		if !errors.Is(err, session.ErrOptionalFieldNotStored) {
			return fmt.Errorf("applying profile: %w", err)
		}
		m.log.Warn().Err(err).Msg("profile stored without optional fields")
	}
	if !m.RefreshUser() {
		return errors.New("applying profile: session ended")
	}
	return nil
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}
