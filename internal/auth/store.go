package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bingoyes/diarysync/internal/atomicfile"
)

// filePerms restricts credential files to owner-only read/write.
const filePerms = 0o600

// On-disk document names inside the app data directory. Each document
// is plain structured text overwritten wholesale on save.
const (
	tokensFileName     = "google_auth.json"
	authConfigFileName = "google_auth_config.json"
	verifierFileName   = "pkce_verifier.txt"
)

// TokenSet holds the stored OAuth2 credentials. Created on a
// successful code exchange; the access token and expiry are replaced
// on refresh while the refresh token and email are retained.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // epoch seconds
	Email        string `json:"email,omitempty"`
}

// Config holds user-provided OAuth client credential overrides.
type Config struct {
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

func (m *Manager) tokensPath() string {
	return filepath.Join(m.dataDir, tokensFileName)
}

func (m *Manager) authConfigPath() string {
	return filepath.Join(m.dataDir, authConfigFileName)
}

func (m *Manager) verifierPath() string {
	return filepath.Join(m.dataDir, verifierFileName)
}

// loadTokens reads the persisted token set. A missing or unparsable
// document yields nil — the user is simply not authenticated.
func loadTokens(path string) *TokenSet {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var ts TokenSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil
	}

	return &ts
}

// saveTokens persists the token set, or removes the document when
// tokens is nil (disconnect).
func saveTokens(path string, tokens *TokenSet) error {
	if tokens == nil {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("auth: removing token file: %w", err)
		}

		return nil
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encoding tokens: %w", err)
	}

	if err := atomicfile.WriteFile(path, data, filePerms); err != nil {
		return fmt.Errorf("auth: saving tokens: %w", err)
	}

	return nil
}

// loadAuthConfig reads the client credential overrides. Missing or
// unparsable documents yield the zero Config.
func loadAuthConfig(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// saveAuthConfig persists the client credential overrides.
func saveAuthConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encoding auth config: %w", err)
	}

	if err := atomicfile.WriteFile(path, data, filePerms); err != nil {
		return fmt.Errorf("auth: saving auth config: %w", err)
	}

	return nil
}

// loadVerifier reads the pending PKCE verifier, or "" when none exists.
func loadVerifier(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// saveVerifier persists the pending PKCE verifier.
func saveVerifier(path, verifier string) error {
	if err := atomicfile.WriteFile(path, []byte(verifier), filePerms); err != nil {
		return fmt.Errorf("auth: saving PKCE verifier: %w", err)
	}

	return nil
}

// clearVerifier removes the pending PKCE verifier, if any.
func clearVerifier(path string) {
	_ = os.Remove(path)
}
