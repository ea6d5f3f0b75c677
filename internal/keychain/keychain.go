// Package keychain keeps RETS account passwords in the OS credential store.
//
// Entries are keyed by username and login host, so one store can hold the
// accounts of several RETS servers.
package keychain

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "rets-metadata"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("keychain: no stored password")

// Store reads and writes account passwords. It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// Open opens the OS credential store (macOS Keychain, Windows Credential
// Manager, Secret Service, KWallet or pass, whichever is available).
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Password returns the stored password of username on the server at loginURL.
func (s *Store) Password(loginURL, username string) (string, error) {
	key, err := accountKey(loginURL, username)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the password of username on the server at loginURL.
func (s *Store) SetPassword(loginURL, username, password string) error {
	key, err := accountKey(loginURL, username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(password),
		Label:       ServiceName + " " + key,
		Description: "RETS account password",
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// DeletePassword removes a stored password. Removing a missing entry is not
// an error.
func (s *Store) DeletePassword(loginURL, username string) error {
	key, err := accountKey(loginURL, username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// accountKey returns "username@host" for a login URL.
func accountKey(loginURL, username string) (string, error) {
	if username == "" {
		return "", errors.New("keychain: username is required")
	}
	u, err := url.Parse(loginURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("keychain: invalid login URL %q", loginURL)
	}
	return username + "@" + u.Host, nil
}
