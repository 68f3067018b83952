// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package securestore persists small secrets (tokens, identity, device id)
// between client runs.
//
// The production implementation is [FileStore]: a single JSON map encrypted
// at rest with AES-256-GCM under a key derived from a passphrase via
// Argon2id. [MemoryStore] backs tests and ephemeral profiles.
package securestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("secret not found")

// Keys written by the client runtime.
const (
	// KeyCredential stores the JSON-encoded models.Credential.
	KeyCredential = "auth.credential"
	// KeyIdentity stores the JSON-encoded models.User of the session owner.
	KeyIdentity = "auth.identity"
	// KeyDeviceID stores the stable installation identifier.
	KeyDeviceID = "device.id"
)

// SecretStore is the secure credential storage the session manager and sync
// engine depend on.
type SecretStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// FileStore implements [SecretStore] on top of one encrypted file.
//
// File layout: salt (16 bytes) ‖ nonce (12 bytes) ‖ AES-GCM ciphertext of
// the JSON-encoded key/value map. The whole file is rewritten atomically on
// every mutation.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase string

	// key is the Argon2id-derived encryption key, cached after the first
	// load/persist so the KDF runs once per process.
	key    []byte
	salt   []byte
	values map[string]string
	loaded bool
}

var _ SecretStore = (*FileStore)(nil)

// NewFileStore returns a store persisting to path, encrypted under a key
// derived from passphrase. The file is created on first Set.
func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{
		path:       path,
		passphrase: passphrase,
	}
}

// Get implements [SecretStore].
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", err
	}

	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return value, nil
}

// Set implements [SecretStore].
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	s.values[key] = value

	return s.persist()
}

// Delete implements [SecretStore].
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)

	return s.persist()
}

// load reads and decrypts the backing file once per process. A missing file
// yields an empty map.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}

	blob, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.values = make(map[string]string)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets file: %w", err)
	}

	if len(blob) < saltSize {
		return fmt.Errorf("secrets file corrupted: too short")
	}
	s.salt = append([]byte(nil), blob[:saltSize]...)
	s.key = deriveKey(s.passphrase, s.salt)

	values, err := openValues(s.key, blob[saltSize:])
	if err != nil {
		return err
	}

	s.values = values
	s.loaded = true

	return nil
}

// persist encrypts the map and atomically replaces the backing file.
func (s *FileStore) persist() error {
	if s.salt == nil {
		salt, err := newSalt()
		if err != nil {
			return err
		}
		s.salt = salt
		s.key = deriveKey(s.passphrase, s.salt)
	}

	sealed, err := sealValues(s.key, s.values)
	if err != nil {
		return err
	}
	blob := append(append([]byte(nil), s.salt...), sealed...)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create secrets dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace secrets file: %w", err)
	}

	return nil
}
