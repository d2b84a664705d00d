// Package auth owns the OAuth2/PKCE credential lifecycle: building
// authorization URLs, exchanging authorization codes, refreshing
// access tokens near expiry, and persisting the token set, the pending
// PKCE verifier, and client credential overrides.
package auth

import "errors"

// Sentinel errors for credential state. Use errors.Is to check.
var (
	// ErrNotConfigured indicates no OAuth client ID has been set — the
	// built-in value is a placeholder that cannot authenticate.
	ErrNotConfigured = errors.New("auth: no client ID configured")

	// ErrNotAuthenticated indicates no token set is stored.
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrNoVerifier indicates a code exchange was attempted without a
	// pending PKCE verifier (exchange called twice, or after a restart
	// without requesting a new authorization URL).
	ErrNoVerifier = errors.New("auth: no PKCE verifier pending")

	// ErrNoRefreshToken indicates the access token expired and no
	// refresh token is stored to renew it.
	ErrNoRefreshToken = errors.New("auth: no refresh token available")

	// ErrExchangeFailed indicates the token endpoint rejected the
	// authorization code exchange.
	ErrExchangeFailed = errors.New("auth: code exchange failed")

	// ErrRefreshFailed indicates the token endpoint rejected the
	// refresh token grant.
	ErrRefreshFailed = errors.New("auth: token refresh failed")
)
