// Package credential binds the session storage to the operating
// system keyring.
package credential

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/99designs/keyring"
)

const serviceName = "leavedesk"

// KeyringStorage persists session fields in the system keyring. It
// implements session.Storage.
type KeyringStorage struct {
	ring keyring.Keyring
}

// Open returns a KeyringStorage backed by the first available system
// keyring, falling back to an encrypted file store under fileDir.
func Open(fileDir string) (*KeyringStorage, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("leavedesk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringStorage{ring: ring}, nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *KeyringStorage {
	return &KeyringStorage{ring: ring}
}

// Get retrieves a session field. A missing key yields "".
func (k *KeyringStorage) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a session field.
func (k *KeyringStorage) Set(key string, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Remove deletes a session field. Removing a missing key succeeds.
func (k *KeyringStorage) Remove(key string) error {
	err := k.ring.Remove(key)
	// The file backend reports a missing key as a missing file.
	if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
