// Package identity signs users in with their Microsoft account and
// exchanges that identity for a backend session.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
)

// Exchanger trades a verified Microsoft identity for a backend session.
type Exchanger interface {
	MicrosoftAuth(ctx context.Context, req model.MicrosoftAuthRequest) (model.AuthResponse, error)
}

// SessionEstablisher persists a backend session and publishes the user.
type SessionEstablisher interface {
	EstablishSession(resp model.AuthResponse) error
}

// DeviceCode is what the user needs to finish signing in on another
// device or in a browser.
type DeviceCode struct {
	UserCode        string
	VerificationURI string
	ExpiresAt       time.Time
}

// Prompt shows a DeviceCode to the user.
type Prompt func(DeviceCode)

// Option configures a Bridge.
type Option func(*Bridge)

// WithHTTPClient sets the client used for the identity platform and Graph.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Bridge) { b.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bridge) { b.log = log.With().Str("component", "identity").Logger() }
}

// WithPrompt sets the callback that displays the device code.
func WithPrompt(p Prompt) Option {
	return func(b *Bridge) { b.prompt = p }
}

// Bridge runs the Microsoft sign-in sequence.
type Bridge struct {
	cfg           model.MicrosoftConfig
	graphEndpoint string
	exchanger     Exchanger
	sessions      SessionEstablisher
	notifier      events.Notifier
	nav           events.Navigator
	httpClient    *http.Client
	log           zerolog.Logger
	prompt        Prompt

	once    sync.Once
	mu      sync.RWMutex
	oauth   *oauth2.Config
	initErr error
}

// NewBridge creates a Bridge. Initialize must run before Login.
func NewBridge(cfg model.MicrosoftConfig, exchanger Exchanger, sessions SessionEstablisher, bus events.Bus, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:           cfg,
		graphEndpoint: strings.TrimRight(cfg.GraphEndpoint, "/"),
		exchanger:     exchanger,
		sessions:      sessions,
		notifier:      events.NewNotifier(bus),
		nav:           events.NewNavigator(bus),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize prepares the OAuth client. It runs once; later calls
// return the first result.
func (b *Bridge) Initialize() error {
	b.once.Do(func() {
		var (
			cfg *oauth2.Config
			err error
		)
		if b.cfg.ClientID == "" {
			err = ErrNotConfigured
		} else {
			cfg = b.oauthConfig()
		}

		b.mu.Lock()
		b.oauth = cfg
		b.initErr = err
		b.mu.Unlock()

		if err != nil {
			b.log.Warn().Err(err).Msg("microsoft sign-in unavailable")
			return
		}
		b.log.Debug().Str("authority", b.cfg.Authority).Msg("microsoft sign-in initialized")
	})

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initErr
}

// IsInitialized reports whether Login can be called.
func (b *Bridge) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.oauth != nil
}

func (b *Bridge) oauthConfig() *oauth2.Config {
	authority := strings.TrimRight(b.cfg.Authority, "/")
	return &oauth2.Config{
		ClientID: b.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:       authority + "/oauth2/v2.0/authorize",
			TokenURL:      authority + "/oauth2/v2.0/token",
			DeviceAuthURL: authority + "/oauth2/v2.0/devicecode",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		Scopes: b.cfg.Scopes,
	}
}

// Login signs the user in. On success the backend session is persisted,
// a notice is posted and the dashboard is shown. On failure an error
// notice matching the cause is posted, nothing is persisted and the
// classified *Error is returned.
func (b *Bridge) Login(ctx context.Context) error {
	err := b.login(ctx)
	if err != nil {
		b.log.Error().Err(err).Str("kind", KindOf(err).String()).Msg("microsoft sign-in failed")
		b.notifier.Error(UserMessage(err))
		return err
	}
	return nil
}

func (b *Bridge) login(ctx context.Context) error {
	b.mu.RLock()
	cfg := b.oauth
	b.mu.RUnlock()
	if cfg == nil {
		return ErrNotInitialized
	}

	octx := context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	da, err := cfg.DeviceAuth(octx)
	if err != nil {
		return classify("device authorization", err)
	}
	b.showCode(da)

	tok, err := cfg.DeviceAccessToken(octx, da)
	if err != nil {
		return classify("waiting for sign-in", err)
	}

	profile, err := b.fetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return classify("reading profile", err)
	}

	email := profile.Email()
	if b.cfg.EnforceDomains && !isDomainAllowed(email, b.cfg.AllowedDomains) {
		return &Error{
			Kind: KindDomainNotAllowed,
			Op:   "checking domain",
			Err:  fmt.Errorf("user %s is not in allowed domains", email),
		}
	}

	b.notifier.Info("Microsoft sign-in successful, authenticating with system...")

	photo, err := b.fetchPhoto(ctx, tok.AccessToken)
	if err != nil {
		b.log.Warn().Err(err).Msg("could not fetch profile picture")
	}

	first, last := profile.Names()
	resp, err := b.exchanger.MicrosoftAuth(ctx, model.MicrosoftAuthRequest{
		FirstName:         first,
		LastName:          last,
		Email:             email,
		Token:             tok.AccessToken,
		ProfilePictureURL: photo,
	})
	if err != nil {
		return classify("backend exchange", err)
	}

	if err := b.sessions.EstablishSession(resp); err != nil {
		return classify("storing session", err)
	}

	b.log.Info().Str("email", email).Msg("microsoft sign-in complete")
	b.notifier.Success("Login successful! Redirecting to dashboard...")
	b.nav.Navigate(events.RouteDashboard)
	return nil
}

func (b *Bridge) showCode(da *oauth2.DeviceAuthResponse) {
	code := DeviceCode{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
		ExpiresAt:       da.Expiry,
	}
	if da.VerificationURIComplete != "" {
		code.VerificationURI = da.VerificationURIComplete
	}

	b.log.Debug().Str("verification_uri", code.VerificationURI).Msg("device code issued")
	if b.prompt != nil {
		b.prompt(code)
	}
}

// isDomainAllowed reports whether email belongs to one of allowed. An
// empty list allows every domain.
func isDomainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])
	for _, a := range allowed {
		if domain == strings.ToLower(a) {
			return true
		}
	}
	return false
}
