package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the
// callback handler.
type callbackResult struct {
	code string
	err  error
}

// successPage is served to the browser once the code is captured.
const successPage = `<!DOCTYPE html>
<html>
<head><title>BingoDiary — Authorization Successful</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Authorization successful</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// WaitForCode runs a localhost HTTP server on the fixed redirect port
// and blocks until the OAuth redirect delivers an authorization code,
// the authorization server reports an error, or ctx is canceled. The
// port is fixed because the redirect URI registered with the provider
// names it.
func WaitForCode(ctx context.Context, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", redirectPort))
	if err != nil {
		return "", fmt.Errorf("auth: binding callback listener: %w", err)
	}

	logger.Info("callback server listening", slog.Int("port", redirectPort))

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, resultCh)
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("auth: callback server error: %w", serveErr)}
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
		}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("auth: waiting for callback: %w", ctx.Err())
	}
}

// handleCallback extracts the authorization code (or provider error)
// from the redirect and sends the result.
func handleCallback(w http.ResponseWriter, r *http.Request, resultCh chan<- callbackResult) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		desc := r.URL.Query().Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		resultCh <- callbackResult{err: fmt.Errorf("auth: authorization failed: %s: %s", errParam, desc)}

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		resultCh <- callbackResult{err: errors.New("auth: callback missing authorization code")}

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
	resultCh <- callbackResult{code: code}
}
