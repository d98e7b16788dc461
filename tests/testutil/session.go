package testutil

import (
	"testing"

	"github.com/nhle/leave-management/internal/model"
	"github.com/nhle/leave-management/internal/session"
)

// NewMemoryStorage returns an empty in-memory session storage.
func NewMemoryStorage(t *testing.T) *session.MemoryStorage {
	t.Helper()
	return session.NewMemoryStorage()
}

// NewSignedInStorage returns a session storage holding resp.
func NewSignedInStorage(t *testing.T, resp model.AuthResponse) *session.MemoryStorage {
	t.Helper()

	s := session.NewMemoryStorage()
	if err := session.Save(s, resp); err != nil {
		t.Fatalf("seeding session: %v", err)
	}
	return s
}
