package login

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leave-management/internal/api"
	"github.com/nhle/leave-management/internal/auth"
	"github.com/nhle/leave-management/internal/keys"
	"github.com/nhle/leave-management/internal/model"
)

type fakeAuth struct {
	email, password string
	registered      []model.RegisterRequest
	loginErr        error
	registerMsg     string
}

func (f *fakeAuth) Login(_ context.Context, email, password string) error {
	f.email, f.password = email, password
	return f.loginErr
}

func (f *fakeAuth) Register(_ context.Context, req model.RegisterRequest) (string, error) {
	f.registered = append(f.registered, req)
	return f.registerMsg, nil
}

type fakeMicrosoft struct {
	initialized bool
	started     chan struct{}
}

func (f *fakeMicrosoft) IsInitialized() bool { return f.initialized }

func (f *fakeMicrosoft) Login(ctx context.Context) error {
	close(f.started)
	<-ctx.Done()
	return ctx.Err()
}

func newModel(a Authenticator, ms MicrosoftSignIn) Model {
	m := New(a, ms, keys.DefaultKeyMap(), 100, 30)
	m.Init()
	return m
}

func TestStartsOnSignInForm(t *testing.T) {
	m := newModel(&fakeAuth{}, nil)

	assert.True(t, m.Capturing())
	assert.Equal(t, modeSignIn, m.mode)
	assert.Contains(t, m.View(), "Sign in to your account")
}

func TestSubmitSignIn(t *testing.T) {
	a := &fakeAuth{}
	m := newModel(a, nil)
	m.fb.email = "ada@example.com"
	m.fb.password = "secret"

	cmd := m.submit()
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, loginDoneMsg{}, cmd())
	assert.Equal(t, "ada@example.com", a.email)
	assert.Equal(t, "secret", a.password)
}

func TestSignInFailureShowsInlineError(t *testing.T) {
	m := newModel(&fakeAuth{}, nil)
	m.busy = true

	m, _ = m.Update(loginDoneMsg{err: auth.ErrCredentialsRequired})
	assert.False(t, m.busy)
	assert.Equal(t, "Email and password are required", m.errText)
	assert.NotNil(t, m.form)
	assert.Contains(t, m.View(), "Email and password are required")
}

func TestRegisterSwitchAndBack(t *testing.T) {
	m := newModel(&fakeAuth{}, nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, modeRegister, m.mode)
	assert.Contains(t, m.View(), "Create a new account")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeSignIn, m.mode)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	a := &fakeAuth{}
	m := newModel(a, nil)
	m.showRegister()
	m.fb.password = "one"
	m.fb.confirmPassword = "two"

	m.submit()
	assert.Equal(t, "Passwords do not match", m.errText)
	assert.Equal(t, modeRegister, m.mode)
	assert.False(t, m.busy)
	assert.Empty(t, a.registered)
}

func TestRegisterSuccessReturnsToSignIn(t *testing.T) {
	a := &fakeAuth{registerMsg: "Registration successful! Please login."}
	m := newModel(a, nil)
	m.showRegister()
	m.fb.firstName = " Ada "
	m.fb.lastName = "Lovelace"
	m.fb.email = "ada@example.com"
	m.fb.password = "pw"
	m.fb.confirmPassword = "pw"

	cmd := m.submit()
	require.NotNil(t, cmd)
	msg := cmd()
	require.Len(t, a.registered, 1)
	assert.Equal(t, "Ada", a.registered[0].FirstName)

	m, _ = m.Update(msg)
	assert.Equal(t, modeSignIn, m.mode)
	assert.Equal(t, "ada@example.com", m.fb.email)
	assert.Contains(t, m.View(), "Registration successful! Please login.")
}

func TestMicrosoftNotConfigured(t *testing.T) {
	m := newModel(&fakeAuth{}, &fakeMicrosoft{initialized: false})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Nil(t, cmd)
	assert.Equal(t, modeSignIn, m.mode)
	assert.Equal(t, "Microsoft sign-in is not configured.", m.errText)
}

func TestMicrosoftDeviceCodeAndCancel(t *testing.T) {
	ms := &fakeMicrosoft{initialized: true, started: make(chan struct{})}
	m := newModel(&fakeAuth{}, ms)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	assert.Equal(t, modeMicrosoft, m.mode)
	assert.True(t, m.Capturing())

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-ms.started

	m, _ = m.Update(DeviceCodeMsg{
		UserCode:        "ABCD-1234",
		VerificationURI: "https://microsoft.com/devicelogin",
		ExpiresAt:       time.Date(2024, 1, 1, 10, 15, 0, 0, time.Local),
	})
	view := m.View()
	assert.Contains(t, view, "ABCD-1234")
	assert.Contains(t, view, "https://microsoft.com/devicelogin")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("microsoft sign-in was not cancelled")
	}
	require.IsType(t, microsoftDoneMsg{}, msg)
	assert.ErrorIs(t, msg.(microsoftDoneMsg).err, context.Canceled)

	m, _ = m.Update(msg)
	assert.Equal(t, modeSignIn, m.mode)
	assert.False(t, m.busy)
}

func TestLoginErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"required", auth.ErrCredentialsRequired, "Email and password are required"},
		{"unauthorized", &api.AuthError{}, "Invalid email or password"},
		{"unauthorized with message", &api.AuthError{Message: "Bad credentials"}, "Bad credentials"},
		{"api message", &api.APIError{StatusCode: 400, Message: "Account locked"}, "Account locked"},
		{"api status", &api.APIError{StatusCode: 503}, "Server error: 503"},
		{"no response", fmt.Errorf("executing request: %w", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("refused")}), "No response from server. Please try again later."},
		{"other", errors.New("boom"), "An error occurred during login. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loginErrorText(tt.err))
		})
	}
}

func TestRegisterErrorText(t *testing.T) {
	assert.Equal(t, "Email is already in use", registerErrorText(&api.APIError{StatusCode: 400, Message: "Email is already in use"}))
	assert.Equal(t, "Server error: 500", registerErrorText(&api.APIError{StatusCode: 500}))
	assert.Equal(t, "An error occurred during registration. Please try again.", registerErrorText(errors.New("x")))
}
