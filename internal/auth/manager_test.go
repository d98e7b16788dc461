package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/events"
	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/session"
	"github.com/nhle/leave-management/tests/testutil"
)

type fakeService struct {
	resp     model.AuthResponse
	err      error
	message  string
	gotLogin model.LoginRequest
}

func (f *fakeService) Login(_ context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	f.gotLogin = req
	return f.resp, f.err
}

func (f *fakeService) Register(context.Context, model.RegisterRequest) (string, error) {
	return f.message, f.err
}

func newManager(t *testing.T, svc Service) (*Manager, *session.MemoryStorage, *events.Recorder) {
	t.Helper()
	storage := testutil.NewMemoryStorage(t)
	rec := testutil.NewRecorder(t)
	return NewManager(storage, svc, rec, zerolog.Nop()), storage, rec
}

func seed(t *testing.T, s session.Storage, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, s.Set(k, v))
	}
}

func lastAuthUser(t *testing.T, rec *events.Recorder) *model.User {
	t.Helper()
	msgs := rec.Messages(events.TopicAuthChanged)
	require.NotEmpty(t, msgs)
	user, ok := msgs[len(msgs)-1].Args[0].(*model.User)
	require.True(t, ok)
	return user
}

func TestInitializeWithoutToken(t *testing.T) {
	m, storage, rec := newManager(t, nil)
	seed(t, storage, map[string]string{session.KeyUserID: "5", session.KeyEmail: "a@example.com"})

	assert.True(t, m.IsLoading())
	m.Initialize()

	assert.False(t, m.IsLoading())
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Nil(t, lastAuthUser(t, rec))
}

func TestRefreshUserPublishesRoles(t *testing.T) {
	m, storage, _ := newManager(t, nil)
	seed(t, storage, map[string]string{
		session.KeyToken:  "abc",
		session.KeyUserID: "5",
		session.KeyRoles:  `["ROLE_ADMIN"]`,
	})

	require.True(t, m.RefreshUser())
	assert.True(t, m.HasRole(model.RoleAdmin))
	assert.False(t, m.HasRole(model.RoleHR))
	assert.True(t, m.HasAnyRole(model.RoleManager, model.RoleAdmin))
}

func TestRefreshUserRoundTrip(t *testing.T) {
	m, storage, rec := newManager(t, nil)
	resp := model.AuthResponse{
		Token:             "tok",
		UserID:            42,
		FirstName:         "Ann",
		LastName:          "Lee",
		Email:             "ann@example.com",
		Roles:             []string{model.RoleManager, model.RoleEmployee},
		ProfilePictureURL: "data:image/png;base64,AAA",
	}
	require.NoError(t, session.Save(storage, resp))

	require.True(t, m.RefreshUser())
	user := m.User()
	require.NotNil(t, user)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Ann", user.FirstName)
	assert.Equal(t, "Lee", user.LastName)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.ElementsMatch(t, resp.Roles, user.Roles)
	assert.Equal(t, resp.ProfilePictureURL, user.ProfilePictureURL)
	assert.Equal(t, user, lastAuthUser(t, rec))
}

func TestRefreshUserMalformedRolesDegrades(t *testing.T) {
	for _, raw := range []string{`not json`, `{"role":"ROLE_ADMIN"}`, `"ROLE_ADMIN"`} {
		m, storage, _ := newManager(t, nil)
		seed(t, storage, map[string]string{
			session.KeyToken:  "abc",
			session.KeyUserID: "5",
			session.KeyRoles:  raw,
		})

		require.True(t, m.RefreshUser(), raw)
		assert.Empty(t, m.User().Roles, raw)
		assert.False(t, m.HasRole(model.RoleAdmin), raw)
	}
}

func TestRefreshUserInvalidUserID(t *testing.T) {
	m, storage, _ := newManager(t, nil)
	seed(t, storage, map[string]string{session.KeyToken: "abc", session.KeyUserID: "five"})

	assert.False(t, m.RefreshUser())
	assert.False(t, m.IsAuthenticated())
}

func TestUserReturnsCopy(t *testing.T) {
	m, storage, _ := newManager(t, nil)
	seed(t, storage, map[string]string{
		session.KeyToken:  "abc",
		session.KeyUserID: "5",
		session.KeyRoles:  `["ROLE_HR"]`,
	})
	m.RefreshUser()

	u := m.User()
	u.Roles[0] = model.RoleAdmin
	assert.False(t, m.HasRole(model.RoleAdmin))
}

func TestLogoutClearsEverything(t *testing.T) {
	m, storage, rec := newManager(t, nil)
	require.NoError(t, session.Save(storage, model.AuthResponse{
		Token:  "abc",
		UserID: 5,
		Email:  "a@example.com",
		Roles:  []string{model.RoleAdmin, model.RoleHR},
	}))
	m.Initialize()
	require.True(t, m.IsAuthenticated())

	require.NoError(t, m.Logout())

	assert.False(t, m.IsAuthenticated())
	for _, role := range []string{model.RoleAdmin, model.RoleHR, model.RoleManager, model.RoleEmployee} {
		assert.False(t, m.HasRole(role))
	}
	assert.Equal(t, 0, storage.Len())
	assert.Nil(t, lastAuthUser(t, rec))

	notices := rec.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, events.LevelSuccess, notices[0].Level)
	assert.Equal(t, "Logged out successfully", notices[0].Text)
	assert.Equal(t, []events.Route{events.RouteLogin}, rec.Routes())
}

func TestLoginEstablishesSession(t *testing.T) {
	svc := &fakeService{resp: model.AuthResponse{
		Token:     "jwt",
		UserID:    7,
		FirstName: "Bo",
		Roles:     []string{model.RoleEmployee},
	}}
	m, storage, rec := newManager(t, svc)

	require.NoError(t, m.Login(context.Background(), " bo@example.com ", "pw"))

	assert.Equal(t, "bo@example.com", svc.gotLogin.Email)
	assert.True(t, m.HasRole(model.RoleEmployee))
	tok, _ := storage.Get(session.KeyToken)
	assert.Equal(t, "jwt", tok)
	assert.Equal(t, []events.Route{events.RouteDashboard}, rec.Routes())
	require.Len(t, rec.Notices(), 1)
	assert.Equal(t, "Login successful!", rec.Notices()[0].Text)
}

func TestLoginRequiresCredentials(t *testing.T) {
	m, _, _ := newManager(t, &fakeService{})
	assert.ErrorIs(t, m.Login(context.Background(), "", "pw"), ErrCredentialsRequired)
	assert.ErrorIs(t, m.Login(context.Background(), "a@b.c", ""), ErrCredentialsRequired)
}

func TestLoginFailureLeavesSignedOut(t *testing.T) {
	boom := errors.New("invalid email or password")
	m, storage, rec := newManager(t, &fakeService{err: boom})

	err := m.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, storage.Len())
	assert.Empty(t, rec.Routes())
}

func TestEstablishSessionRejectsResponseWithoutUserID(t *testing.T) {
	m, storage, _ := newManager(t, nil)

	err := m.EstablishSession(model.AuthResponse{Token: "jwt"})
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, storage.Len())
}

// smallKeyring rejects values above a fixed size.
type smallKeyring struct {
	*session.MemoryStorage
}

func (s smallKeyring) Set(key, value string) error {
	if len(value) > 2560 {
		return errors.New("credential blob too large")
	}
	return s.MemoryStorage.Set(key, value)
}

func TestEstablishSessionKeepsUserWhenPictureTooLarge(t *testing.T) {
	storage := smallKeyring{MemoryStorage: session.NewMemoryStorage()}
	rec := testutil.NewRecorder(t)
	m := NewManager(storage, nil, rec, zerolog.Nop())

	err := m.EstablishSession(model.AuthResponse{
		Token:             "jwt",
		UserID:            9,
		Email:             "ms@example.com",
		ProfilePictureURL: "data:image/jpeg;base64," + strings.Repeat("A", 300_000),
	})
	require.NoError(t, err)

	require.True(t, m.IsAuthenticated())
	assert.Equal(t, int64(9), m.User().ID)
	assert.Empty(t, m.User().ProfilePictureURL)
	assert.Equal(t, int64(9), lastAuthUser(t, rec).ID)
}

func TestApplyProfileRepublishesUser(t *testing.T) {
	m, storage, rec := newManager(t, nil)
	require.NoError(t, session.Save(storage, model.AuthResponse{
		Token: "jwt", UserID: 3, FirstName: "Ann", Email: "ann@example.com",
		Roles: []string{model.RoleEmployee},
	}))
	m.Initialize()

	require.NoError(t, m.ApplyProfile(model.Profile{ID: 3, FirstName: "Anna", LastName: "Lee"}))

	assert.Equal(t, "Anna Lee", m.User().FullName())
	assert.True(t, m.HasRole(model.RoleEmployee))
	assert.Equal(t, "Anna", lastAuthUser(t, rec).FirstName)
}

func TestApplyProfileWhileSignedOut(t *testing.T) {
	m, _, _ := newManager(t, nil)
	assert.Error(t, m.ApplyProfile(model.Profile{FirstName: "x"}))
	assert.False(t, m.IsAuthenticated())
}

func TestRegisterDefaultsMessage(t *testing.T) {
	m, _, _ := newManager(t, &fakeService{})
	msg, err := m.Register(context.Background(), model.RegisterRequest{Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "Registration successful! Please login.", msg)
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	storage := testutil.NewSignedInStorage(t, model.AuthResponse{
		Token:     "persisted",
		UserID:    8,
		FirstName: "Grace",
		Email:     "grace@example.com",
		Roles:     []string{model.RoleHR},
	})
	rec := testutil.NewRecorder(t)
	m := NewManager(storage, nil, rec, zerolog.Nop())

	m.Initialize()

	require.True(t, m.IsAuthenticated())
	assert.False(t, m.IsLoading())
	assert.Equal(t, "grace@example.com", m.User().Email)
	assert.True(t, m.HasAnyRole(model.RoleManager, model.RoleHR))
	assert.False(t, m.HasAnyRole(model.RoleAdmin))
	assert.Equal(t, int64(8), lastAuthUser(t, rec).ID)
}
