package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	tokenService = "nudge"
	tokenAccount = "api_token"
)

// Keychain abstracts the platform secret store. On macOS this is the
// Keychain via the security CLI; elsewhere a secrets file under XDG data.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

// NewKeychain returns the secret store for the current platform.
func NewKeychain() Keychain {
	return platformKeychain{}
}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token protecting the control API,
// generating and storing a fresh one on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if tok, err := kc.Get(tokenService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	tok := uuid.NewString()
	if err := kc.Set(tokenService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
