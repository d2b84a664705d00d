package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Google OAuth2 endpoints and the userinfo endpoint used to resolve
// the account email after an exchange.
const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Scopes are fixed and minimal: files created by this app, plus email.
var scopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.email",
}

// redirectPort is the fixed localhost port registered as the OAuth
// redirect URI for this app's client ID.
const redirectPort = 8234

// placeholderClientID is the built-in default. It cannot authenticate;
// a real client ID must be stored via SaveClientCredentials.
const placeholderClientID = "YOUR_CLIENT_ID.apps.googleusercontent.com"

// refreshSkew is how long before expiry a token is refreshed. Matches
// Google's guidance of renewing well ahead of the deadline.
const refreshSkew = 300 * time.Second

// Manager owns the credential lifecycle. The mutex guards the token
// set and the single pending-verifier slot: only one authorization
// flow's verifier is valid at a time.
type Manager struct {
	mu           sync.Mutex
	dataDir      string
	clientID     string
	clientSecret string
	tokens       *TokenSet
	logger       *slog.Logger

	// Overridable for tests.
	endpoint    oauth2.Endpoint
	userinfoURL string
	httpClient  *http.Client
	now         func() time.Time
}

// NewManager creates a Manager rooted at dataDir, loading any stored
// client credential overrides and token set.
func NewManager(dataDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("auth: creating data directory: %w", err)
	}

	m := &Manager{
		dataDir:     dataDir,
		logger:      logger,
		endpoint:    oauth2.Endpoint{AuthURL: defaultAuthURL, TokenURL: defaultTokenURL},
		userinfoURL: defaultUserinfoURL,
		httpClient:  http.DefaultClient,
		now:         time.Now,
	}

	cfg := loadAuthConfig(m.authConfigPath())

	m.clientID = cfg.ClientID
	if m.clientID == "" {
		m.clientID = placeholderClientID
	}

	m.clientSecret = cfg.ClientSecret
	m.tokens = loadTokens(m.tokensPath())

	return m, nil
}

// oauthConfig builds the oauth2.Config for the current client
// credentials. The localhost redirect works for both desktop and
// mobile flows.
func (m *Manager) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Endpoint:     m.endpoint,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", redirectPort),
		Scopes:       scopes,
	}
}

// IsConfigured reports whether a real (non-placeholder) client ID is set.
func (m *Manager) IsConfigured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.clientID != placeholderClientID
}

// IsAuthenticated reports whether a token set is stored.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tokens != nil
}

// Email returns the stored account email, or "" if unknown.
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		return ""
	}

	return m.tokens.Email
}

// BuildAuthorizationURL generates a fresh PKCE verifier/challenge
// pair, persists the verifier, and returns the authorization URL.
// At most one verifier is pending at a time: a new call overwrites any
// prior unconsumed one (last request wins, logged as a warning).
func (m *Manager) BuildAuthorizationURL(state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clientID == placeholderClientID {
		return "", ErrNotConfigured
	}

	if loadVerifier(m.verifierPath()) != "" {
		m.logger.Warn("overwriting unconsumed PKCE verifier — prior authorization flow is now invalid")
	}

	verifier := oauth2.GenerateVerifier()
	if err := saveVerifier(m.verifierPath(), verifier); err != nil {
		return "", err
	}

	url := m.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"), // forces a refresh token on re-consent
		oauth2.S256ChallengeOption(verifier),
	)

	m.logger.Info("authorization URL generated")

	return url, nil
}

// ExchangeCode consumes the pending PKCE verifier and exchanges the
// authorization code for a token set. The account email is fetched
// best-effort — a userinfo failure does not abort the exchange. On
// success the token set is persisted and the verifier deleted.
func (m *Manager) ExchangeCode(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	verifier := loadVerifier(m.verifierPath())
	if verifier == "" {
		return ErrNoVerifier
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.oauthConfig().Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	var expiresAt int64
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry.Unix()
	}

	email, err := m.fetchEmail(ctx, tok.AccessToken)
	if err != nil {
		m.logger.Warn("fetching account email failed", slog.String("error", err.Error()))
	}

	m.tokens = &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Email:        email,
	}

	if err := saveTokens(m.tokensPath(), m.tokens); err != nil {
		return err
	}

	clearVerifier(m.verifierPath())

	m.logger.Info("authorization complete", slog.String("email", email))

	return nil
}

// ValidAccessToken returns a bearer token, refreshing first when the
// stored token expires within the skew window (or already has).
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		return "", ErrNotAuthenticated
	}

	if m.tokens.ExpiresAt != 0 && m.now().Unix() >= m.tokens.ExpiresAt-int64(refreshSkew.Seconds()) {
		if err := m.refresh(ctx); err != nil {
			return "", err
		}
	}

	return m.tokens.AccessToken, nil
}

// refresh exchanges the refresh token for a new access token. The
// original refresh token and email are retained. Caller holds m.mu.
func (m *Manager) refresh(ctx context.Context) error {
	if m.tokens.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	m.logger.Info("access token near expiry, refreshing")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	// TokenSource over a refresh-token-only token performs the
	// refresh_token grant against the token endpoint.
	src := m.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: m.tokens.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	m.tokens.AccessToken = tok.AccessToken
	if !tok.Expiry.IsZero() {
		m.tokens.ExpiresAt = tok.Expiry.Unix()
	}

	return saveTokens(m.tokensPath(), m.tokens)
}

// Disconnect clears the in-memory and persisted token set.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil

	return saveTokens(m.tokensPath(), nil)
}

// ClearAllCredentials removes tokens, the stored client ID/secret, and
// any pending PKCE verifier, resetting to the unconfigured state.
func (m *Manager) ClearAllCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = nil
	if err := saveTokens(m.tokensPath(), nil); err != nil {
		return err
	}

	if err := os.Remove(m.authConfigPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("auth: removing auth config: %w", err)
	}

	clearVerifier(m.verifierPath())

	m.clientID = placeholderClientID
	m.clientSecret = ""

	m.logger.Info("all credentials cleared")

	return nil
}

// SaveClientCredentials stores a client ID and optional secret,
// making them effective immediately.
func (m *Manager) SaveClientCredentials(clientID, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Config{ClientID: clientID, ClientSecret: clientSecret}
	if err := saveAuthConfig(m.authConfigPath(), cfg); err != nil {
		return err
	}

	m.clientID = clientID
	m.clientSecret = clientSecret

	return nil
}

// fetchEmail resolves the account email from the userinfo endpoint.
func (m *Manager) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("auth: creating userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: userinfo returned HTTP %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("auth: decoding userinfo: %w", err)
	}

	return info.Email, nil
}
