package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Default API endpoints. Tests point these at an httptest server.
const (
	defaultAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultUploadBase = "https://www.googleapis.com/upload/drive/v3"
)

// Timeout settings. Every request carries a fixed connect timeout and
// an overall deadline; there is no automatic retry — a failed request
// is terminal for that operation.
const (
	requestTimeout = 30 * time.Second
	connectTimeout = 10 * time.Second
	userAgent      = "diarysync/0.1"
)

// fileFields is the field projection requested on every file response.
const fileFields = "id,name,mimeType,modifiedTime,size,md5Checksum"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// per Go convention "accept interfaces, return structs"; the auth
// package provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Drive v3 API. It handles request
// construction, authentication, and error classification.
type Client struct {
	apiBase    string
	uploadBase string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a Drive API client. A nil httpClient gets a
// default with the fixed connect and request timeouts.
func NewClient(token TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}

	return &Client{
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// do executes a single authenticated request. Non-2xx responses are
// read, closed, and returned as *APIError. On success the caller is
// responsible for closing the response body.
func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("drive: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("drive: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive: %s %s: %w", method, url, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}
