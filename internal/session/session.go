// Package session defines the persisted session layout: the discrete
// key/value fields that identify the signed-in user, and the helpers
// that read, write and clear them as a unit.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nhle/leave-management/internal/model"
)

// Persisted field keys. Roles is the only JSON-encoded value.
const (
	KeyToken             = "token"
	KeyUserID            = "userId"
	KeyFirstName         = "firstName"
	KeyLastName          = "lastName"
	KeyEmail             = "email"
	KeyRoles             = "roles"
	KeyProfilePictureURL = "profilePictureUrl"
)

// Keys lists every persisted session field.
var Keys = []string{
	KeyToken,
	KeyUserID,
	KeyFirstName,
	KeyLastName,
	KeyEmail,
	KeyRoles,
	KeyProfilePictureURL,
}

// ErrOptionalFieldNotStored is returned by Save when the session was
// stored but an optional field could not be. The session is usable.
var ErrOptionalFieldNotStored = errors.New("optional session field not stored")

// optional fields may fail to store without failing Save. Profile
// pictures can be data URLs larger than some keyrings accept.
var optional = map[string]bool{
	KeyProfilePictureURL: true,
}

// Storage is a string key/value store holding the session fields.
// Get returns "" with a nil error for a missing key, and Remove of a
// missing key is not an error.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Fields is the raw content of the persisted session.
type Fields struct {
	Token             string
	UserID            string
	FirstName         string
	LastName          string
	Email             string
	Roles             string
	ProfilePictureURL string
}

// HasToken reports whether a token is present, the sole signal of an
// authenticated session.
func (f Fields) HasToken() bool {
	return f.Token != ""
}

// ParseUserID parses the persisted user ID.
func (f Fields) ParseUserID() (int64, error) {
	if f.UserID == "" {
		return 0, errors.New("user id is empty")
	}
	id, err := strconv.ParseInt(f.UserID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing user id %q: %w", f.UserID, err)
	}
	return id, nil
}

// Load reads every session field from s.
func Load(s Storage) (Fields, error) {
	values := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, err := s.Get(key)
		if err != nil {
			return Fields{}, fmt.Errorf("reading session field %q: %w", key, err)
		}
		values[key] = v
	}

	return Fields{
		Token:             values[KeyToken],
		UserID:            values[KeyUserID],
		FirstName:         values[KeyFirstName],
		LastName:          values[KeyLastName],
		Email:             values[KeyEmail],
		Roles:             values[KeyRoles],
		ProfilePictureURL: values[KeyProfilePictureURL],
	}, nil
}

// Save replaces the persisted session with a successful authentication
// response. Fields left over from an earlier session are removed first
// and empty fields are not written. When only an optional field fails
// to store, the rest of the session is kept and the returned error
// wraps ErrOptionalFieldNotStored.
func Save(s Storage, resp model.AuthResponse) error {
	if resp.Token == "" {
		return errors.New("saving session: token is empty")
	}
	if err := Clear(s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	values := map[string]string{
		KeyToken:             resp.Token,
		KeyFirstName:         resp.FirstName,
		KeyLastName:          resp.LastName,
		KeyEmail:             resp.Email,
		KeyProfilePictureURL: resp.ProfilePictureURL,
	}
	if resp.UserID != 0 {
		values[KeyUserID] = strconv.FormatInt(resp.UserID, 10)
	}
	if resp.Roles != nil {
		encoded, err := json.Marshal(resp.Roles)
		if err != nil {
			return fmt.Errorf("encoding roles: %w", err)
		}
		values[KeyRoles] = string(encoded)
	}

	var skipped []error
	for _, key := range Keys {
		value := values[key]
		if value == "" {
			continue
		}
		err := s.Set(key, value)
		if err == nil {
			continue
		}
		if !optional[key] {
			return fmt.Errorf("writing session field %q: %w", key, err)
		}
		_ = s.Remove(key)
		skipped = append(skipped, fmt.Errorf("%w: %q: %w", ErrOptionalFieldNotStored, key, err))
	}
	return errors.Join(skipped...)
}

// UpdateProfile rewrites the name and picture fields of the persisted
// session after a profile edit. The token and roles are untouched. A
// picture the storage rejects is removed and reported with
// ErrOptionalFieldNotStored.
func UpdateProfile(s Storage, p model.Profile) error {
	token, err := s.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("reading session token: %w", err)
	}
	if token == "" {
		return errors.New("updating profile: no active session")
	}

	fields := []struct{ key, value string }{
		{KeyFirstName, p.FirstName},
		{KeyLastName, p.LastName},
		{KeyProfilePictureURL, p.ProfilePictureURL},
	}
	if p.Email != "" {
		fields = append(fields, struct{ key, value string }{KeyEmail, p.Email})
	}

	var skipped []error
	for _, f := range fields {
		if f.value == "" {
			if err := s.Remove(f.key); err != nil {
				return fmt.Errorf("removing session field %q: %w", f.key, err)
			}
			continue
		}
		err := s.Set(f.key, f.value)
		if err == nil {
			continue
		}
		if !optional[f.key] {
			return fmt.Errorf("writing session field %q: %w", f.key, err)
		}
		_ = s.Remove(f.key)
		skipped = append(skipped, fmt.Errorf("%w: %q: %w", ErrOptionalFieldNotStored, f.key, err))
	}
	return errors.Join(skipped...)
}

// Clear removes every session field. It attempts all removals and
// returns the joined errors.
func Clear(s Storage) error {
	var errs []error
	for _, key := range Keys {
		if err := s.Remove(key); err != nil {
			errs = append(errs, fmt.Errorf("removing session field %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ClearToken removes only the token, which is enough for every reader
// to treat the session as signed out.
func ClearToken(s Storage) error {
	if err := s.Remove(KeyToken); err != nil {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}

// Token returns the persisted bearer token, or "" when signed out.
func Token(s Storage) (string, error) {
	return s.Get(KeyToken)
}

// ParseRoles decodes the persisted roles field. Anything other than a
// JSON array of strings yields an empty set together with an error
// describing the problem; callers log it and carry on.
func ParseRoles(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return []string{}, fmt.Errorf("parsing roles: %w", err)
	}

	items, ok := decoded.([]any)
	if !ok {
		return []string{}, fmt.Errorf("parsing roles: expected array, got %T", decoded)
	}

	roles := make([]string, 0, len(items))
	for _, item := range items {
		role, ok := item.(string)
		if !ok {
			return []string{}, fmt.Errorf("parsing roles: non-string entry %v", item)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
