// Package apiauth keeps the API bearer token in the OS keyring, with a file
// fallback for hosts that have no keyring service.
package apiauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no token has been stored.
var ErrNotFound = keyring.ErrNotFound

const (
	defaultService = "fairpace"
	tokenAccount   = "api-token"
	tokenBytes     = 24
)

// TokenStore wraps the OS keychain with an optional file fallback.
type TokenStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewTokenStore creates a token store for a keyring service name.
func NewTokenStore(serviceName, fallbackPath string) *TokenStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultService
	}
	return &TokenStore{service: serviceName, fallbackPath: fallbackPath}
}

// Set stores token. Surrounding whitespace is dropped.
func (k *TokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("apiauth: token is required")
	}
	if err := keyring.Set(k.service, tokenAccount, token); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("apiauth: keyring set: %w", err)
	}
	return k.setFallback(token)
}

// Get returns the stored token or ErrNotFound.
func (k *TokenStore) Get() (string, error) {
	val, err := keyring.Get(k.service, tokenAccount)
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("apiauth: keyring get: %w", err)
	}

	fallback, ferr := k.getFallback()
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

// Generate creates, stores and returns a random token.
func (k *TokenStore) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("apiauth: generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := k.Set(token); err != nil {
		return "", err
	}
	return token, nil
}

// Clear removes the token from the keyring and the fallback file.
func (k *TokenStore) Clear() error {
	kerr := keyring.Delete(k.service, tokenAccount)
	ferr := k.clearFallback()
	if kerr != nil && !errors.Is(kerr, keyring.ErrNotFound) && !isKeyringUnavailable(kerr) {
		return fmt.Errorf("apiauth: keyring delete: %w", kerr)
	}
	return ferr
}

// Resolve returns the token a server should require: an explicit value wins,
// then the stored token. A missing token yields "" and no error.
func (k *TokenStore) Resolve(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	token, err := k.Get()
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return token, err
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]string

func (k *TokenStore) setFallback(token string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return fmt.Errorf("apiauth: keyring unavailable and no fallback path configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return err
	}
	data[k.service] = token
	return k.writeFallbackUnlocked(data)
}

func (k *TokenStore) getFallback() (string, error) {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return "", fmt.Errorf("apiauth: fallback path not configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[k.service]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (k *TokenStore) clearFallback() error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[k.service]; !ok {
		return nil
	}
	delete(data, k.service)
	return k.writeFallbackUnlocked(data)
}

func (k *TokenStore) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(k.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("apiauth: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("apiauth: decode fallback: %w", err)
	}
	return out, nil
}

func (k *TokenStore) writeFallbackUnlocked(data fallbackSecrets) error {
	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("apiauth: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("apiauth: encode fallback: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("apiauth: write fallback: %w", err)
	}
	return nil
}
