package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bingoyes/diarysync/internal/auth"
	"github.com/bingoyes/diarysync/internal/drive"
	"github.com/bingoyes/diarysync/internal/metastore"
	"github.com/bingoyes/diarysync/internal/sync"
)

// httpClientTimeout bounds auth HTTP requests (token exchange,
// userinfo) so CLI commands never hang indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// managerTokenSource adapts auth.Manager to the Drive client's
// TokenSource, refreshing transparently on expiry.
type managerTokenSource struct {
	ctx context.Context
	mgr *auth.Manager
}

func (ts managerTokenSource) Token() (string, error) {
	return ts.mgr.ValidAccessToken(ts.ctx)
}

// session bundles the collaborators a sync-capable command needs.
type session struct {
	mgr    *auth.Manager
	engine *sync.Engine
	store  *metastore.Store
	logger *slog.Logger
}

// buildSession wires config, credentials, the Drive client, and the
// sync engine for commands that talk to the remote. Fails fast when no
// account is connected.
func buildSession(ctx context.Context, observer sync.Observer) (*session, error) {
	logger := buildLogger()

	mgr, err := auth.NewManager(resolvedCfg.Diary.DataDir, logger)
	if err != nil {
		return nil, err
	}

	if !mgr.IsAuthenticated() {
		return nil, errors.New("not logged in, run 'diarysync login' first")
	}

	if resolvedCfg.Diary.Dir == "" {
		return nil, errors.New("diary directory not set, configure diary.dir or pass --diary-dir")
	}

	client := drive.NewClient(managerTokenSource{ctx: ctx, mgr: mgr}, nil, logger)
	store := metastore.NewStore(resolvedCfg.Diary.DataDir, logger)

	engine := sync.NewEngine(sync.Config{
		Remote:   client,
		Store:    store,
		DiaryDir: resolvedCfg.Diary.Dir,
		Observer: observer,
		Logger:   logger,
	})

	return &session{mgr: mgr, engine: engine, store: store, logger: logger}, nil
}

// newManager builds just the credential manager, for auth commands
// that do not need the engine.
func newManager(logger *slog.Logger) (*auth.Manager, error) {
	mgr, err := auth.NewManager(resolvedCfg.Diary.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	return mgr, nil
}
