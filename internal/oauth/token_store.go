package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fella/pkg/logging"
)

const (
	tokenDirMode  = 0o700
	tokenFileMode = 0o600
)

// TokenStore persists a single Credential as a JSON file.
//
// Loading never fails: a missing, empty, unreadable or malformed file, or one
// without a refresh token, is reported as "no credential". Saves are atomic
// so a crash never leaves a truncated file behind.
type TokenStore struct {
	path string
}

// NewTokenStore returns a store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the persisted credential. The boolean is false when there is no
// usable credential.
func (s *TokenStore) Load() (Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Debug("TokenStore", "failed to read %s: %v", s.path, err)
		}
		return Credential{}, false
	}
	if len(data) == 0 {
		return Credential{}, false
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		logging.Debug("TokenStore", "ignoring malformed token file %s: %v", s.path, err)
		return Credential{}, false
	}
	if !cred.Valid() {
		return Credential{}, false
	}
	return cred, true
}

// Save writes the credential, creating the parent directory if needed.
// The file is written to a temporary sibling with owner-only permissions and
// renamed into place.
func (s *TokenStore) Save(cred Credential) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, tokenDirMode); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := tmp.Chmod(tokenFileMode); err != nil {
		cleanup()
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	logging.Debug("TokenStore", "saved credential to %s", s.path)
	return nil
}

// Clear removes the persisted credential. A missing file is not an error and
// other failures are only logged.
func (s *TokenStore) Clear() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("TokenStore", "failed to remove %s: %v", s.path, err)
	}
}
