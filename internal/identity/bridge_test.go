package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/auth"
	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/session"
	"github.com/nhle/leave-management/tests/testutil"
)

// fakeMicrosoft serves the device-code, token and Graph endpoints.
type fakeMicrosoft struct {
	tokenError string
	profile    graphProfile
	photo      []byte
}

func (f *fakeMicrosoft) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tenant/oauth2/v2.0/devicecode", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Contains(t, r.PostForm.Get("scope"), "User.Read")
		writeJSON(w, http.StatusOK, map[string]any{
			"device_code":      "dev-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://microsoft.com/devicelogin",
			"expires_in":       900,
			"interval":         1,
		})
	})
	mux.HandleFunc("POST /tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "dev-code", r.PostForm.Get("device_code"))
		if f.tokenError != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": f.tokenError})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "ms-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /graph/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ms-access", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, f.profile)
	})
	mux.HandleFunc("GET /graph/me/photo/{value}", func(w http.ResponseWriter, r *http.Request) {
		if f.photo == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(f.photo)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fakeExchanger struct {
	mu   sync.Mutex
	got  []model.MicrosoftAuthRequest
	resp model.AuthResponse
	err  error
}

func (f *fakeExchanger) MicrosoftAuth(_ context.Context, req model.MicrosoftAuthRequest) (model.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.resp, f.err
}

type fixture struct {
	bridge    *Bridge
	ms        *fakeMicrosoft
	exchanger *fakeExchanger
	manager   *auth.Manager
	storage   *session.MemoryStorage
	rec       *events.Recorder
	codes     []DeviceCode
}

func newFixture(t *testing.T, mutate func(cfg *model.MicrosoftConfig)) *fixture {
	t.Helper()
	f := &fixture{
		ms: &fakeMicrosoft{profile: graphProfile{
			DisplayName: "Ann Marie Lee",
			Mail:        "ann@corp.example",
		}},
		exchanger: &fakeExchanger{resp: model.AuthResponse{
			Token:     "backend-jwt",
			UserID:    11,
			FirstName: "Ann",
			LastName:  "Marie Lee",
			Email:     "ann@corp.example",
			Roles:     []string{model.RoleEmployee},
		}},
		storage: testutil.NewMemoryStorage(t),
		rec:     testutil.NewRecorder(t),
	}

	srv := httptest.NewServer(f.ms.handler(t))
	t.Cleanup(srv.Close)

	cfg := model.MicrosoftConfig{
		ClientID:      "client-1",
		Authority:     srv.URL + "/tenant",
		GraphEndpoint: srv.URL + "/graph",
		Scopes:        []string{"openid", "profile", "email", "User.Read"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f.manager = auth.NewManager(f.storage, nil, f.rec, zerolog.Nop())
	f.bridge = NewBridge(cfg, f.exchanger, f.manager, f.rec,
		WithHTTPClient(srv.Client()),
		WithPrompt(func(c DeviceCode) { f.codes = append(f.codes, c) }),
	)
	return f
}

func TestLoginBeforeInitialize(t *testing.T) {
	f := newFixture(t, nil)

	err := f.bridge.Login(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, f.bridge.IsInitialized())
	require.Len(t, f.rec.Notices(), 1)
	assert.Contains(t, f.rec.Notices()[0].Text, "still initializing")
}

func TestInitializeIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.bridge.Initialize())
	require.NoError(t, f.bridge.Initialize())
	assert.True(t, f.bridge.IsInitialized())
}

func TestInitializeWithoutClientID(t *testing.T) {
	f := newFixture(t, func(cfg *model.MicrosoftConfig) { cfg.ClientID = "" })
	assert.ErrorIs(t, f.bridge.Initialize(), ErrNotConfigured)
	assert.ErrorIs(t, f.bridge.Initialize(), ErrNotConfigured)
	assert.False(t, f.bridge.IsInitialized())
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.ms.photo = []byte("\x89PNG fake")
	require.NoError(t, f.bridge.Initialize())

	require.NoError(t, f.bridge.Login(context.Background()))

	require.Len(t, f.codes, 1)
	assert.Equal(t, "ABCD-EFGH", f.codes[0].UserCode)
	assert.Equal(t, "https://microsoft.com/devicelogin", f.codes[0].VerificationURI)

	require.Len(t, f.exchanger.got, 1)
	req := f.exchanger.got[0]
	assert.Equal(t, "Ann", req.FirstName)
	assert.Equal(t, "Marie Lee", req.LastName)
	assert.Equal(t, "ann@corp.example", req.Email)
	assert.Equal(t, "ms-access", req.Token)
	assert.True(t, strings.HasPrefix(req.ProfilePictureURL, "data:image/png;base64,"))

	assert.True(t, f.manager.IsAuthenticated())
	assert.True(t, f.manager.HasRole(model.RoleEmployee))
	tok, _ := f.storage.Get(session.KeyToken)
	assert.Equal(t, "backend-jwt", tok)
	assert.Equal(t, []events.Route{events.RouteDashboard}, f.rec.Routes())

	notices := f.rec.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, events.LevelSuccess, notices[1].Level)
}

func TestLoginWithoutPhotoStillSucceeds(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.bridge.Initialize())

	require.NoError(t, f.bridge.Login(context.Background()))
	require.Len(t, f.exchanger.got, 1)
	assert.Empty(t, f.exchanger.got[0].ProfilePictureURL)
	assert.True(t, f.manager.IsAuthenticated())
}

func TestLoginDeclinedIsInterrupted(t *testing.T) {
	f := newFixture(t, nil)
	f.ms.tokenError = "authorization_declined"
	require.NoError(t, f.bridge.Initialize())

	err := f.bridge.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindInterrupted, KindOf(err))
	assert.Empty(t, f.exchanger.got)
	assert.Equal(t, 0, f.storage.Len())
	require.Len(t, f.rec.Notices(), 1)
	assert.Equal(t, UserMessage(err), f.rec.Notices()[0].Text)
}

func TestLoginCancelledIsInterrupted(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.bridge.Initialize())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := f.bridge.Login(ctx)
	require.Error(t, err)
	assert.Equal(t, KindInterrupted, KindOf(err))
	assert.Equal(t, 0, f.storage.Len())
}

func TestLoginClientSideDomainCheck(t *testing.T) {
	f := newFixture(t, func(cfg *model.MicrosoftConfig) {
		cfg.EnforceDomains = true
		cfg.AllowedDomains = []string{"company.example"}
	})
	require.NoError(t, f.bridge.Initialize())

	err := f.bridge.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindDomainNotAllowed, KindOf(err))
	assert.Empty(t, f.exchanger.got)
	assert.Equal(t, 0, f.storage.Len())
	assert.Contains(t, f.rec.Notices()[len(f.rec.Notices())-1].Text, "email domain is not allowed")
}

func TestLoginBackendDomainRejection(t *testing.T) {
	f := newFixture(t, nil)
	f.exchanger.err = &api.APIError{StatusCode: 403, Message: "Only @company.example email addresses are allowed"}
	require.NoError(t, f.bridge.Initialize())

	err := f.bridge.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindDomainNotAllowed, KindOf(err))
	assert.Equal(t, 0, f.storage.Len())
	assert.False(t, f.manager.IsAuthenticated())
}

func TestLoginBackendFailureIsGeneric(t *testing.T) {
	f := newFixture(t, nil)
	f.exchanger.err = &api.APIError{StatusCode: 500, Message: "Internal error"}
	require.NoError(t, f.bridge.Initialize())

	err := f.bridge.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindGeneric, KindOf(err))
	assert.Equal(t, "Internal error", UserMessage(err))
	assert.Equal(t, 0, f.storage.Len())
	assert.Empty(t, f.rec.Routes())
}

func TestLoginInvalidBackendSessionPersistsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.exchanger.resp = model.AuthResponse{Token: "jwt-without-user"}
	require.NoError(t, f.bridge.Initialize())

	err := f.bridge.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.storage.Len())
	assert.Empty(t, f.rec.Routes())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindInterrupted, classify("x", context.Canceled).Kind)
	assert.Equal(t, KindGeneric, classify("x", errors.New("boom")).Kind)
	assert.Equal(t, KindDomainNotAllowed, classify("x", errors.New("Domain not permitted")).Kind)
	assert.Equal(t, "Authentication failed. Please try again.", UserMessage(classify("x", errors.New("boom"))))
}

func TestProfileNames(t *testing.T) {
	first, last := graphProfile{GivenName: "Bo", Surname: "Ng", DisplayName: "ignored"}.Names()
	assert.Equal(t, "Bo", first)
	assert.Equal(t, "Ng", last)

	first, last = graphProfile{DisplayName: "Cher"}.Names()
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)

	assert.Equal(t, "upn@example.com", graphProfile{UserPrincipalName: "upn@example.com"}.Email())
}

func TestIsDomainAllowed(t *testing.T) {
	assert.True(t, isDomainAllowed("a@x.com", nil))
	assert.True(t, isDomainAllowed("a@X.com", []string{"x.COM"}))
	assert.False(t, isDomainAllowed("a@y.com", []string{"x.com"}))
	assert.False(t, isDomainAllowed("not-an-email", []string{"x.com"}))
}
