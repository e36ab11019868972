// Package app wires the client core together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"news-reread/internal/api"
	"news-reread/internal/auth"
	"news-reread/internal/cache"
	"news-reread/internal/config"
	"news-reread/internal/metrics"
	"news-reread/internal/repository"
	"news-reread/internal/share"
	"news-reread/internal/store"
)

// App owns every long-lived component of one process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	KV         *store.KVStore
	Cache      *cache.SQLite
	API        *api.Client
	Session    *auth.Session
	Repository *repository.Repository

	inbox *store.RedisInbox
}

// New opens the local stores and builds the authenticated client stack.
// Local mode is re-entered when it was left on by a previous run.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	a.Metrics = metrics.New(a.Registry)

	kv, err := store.OpenKVStore(cfg.KVPath(), logger.Named("kv"))
	if err != nil {
		return nil, err
	}
	a.KV = kv

	c, err := cache.NewSQLite(cfg.CachePath())
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.Cache = c

	opts := []api.Option{
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(logger.Named("api")),
	}

	// The refresher goes straight to the network; only the main client is
	// wrapped by the authenticator.
	plain, err := api.New(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout}, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	authenticator := auth.NewAuthenticator(http.DefaultTransport, kv, plain, logger.Named("auth"), a.Metrics)
	a.API, err = api.New(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout, Transport: authenticator}, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Session = auth.NewSession(a.API, kv, logger.Named("session"))
	if kv.Preferences().LocalMode {
		a.Session.UseLocalMode()
	}
	a.Repository = repository.New(a.API, a.Cache, a.Session, logger.Named("repository"), a.Metrics)
	return a, nil
}

// SetLocalMode switches the session and remembers the choice.
func (a *App) SetLocalMode(on bool) error {
	if err := a.KV.SetPreference(store.PrefLocalMode, on); err != nil {
		return err
	}
	if on {
		a.Session.UseLocalMode()
	} else {
		a.Session.Logout()
	}
	return nil
}

// Login signs in and, once signed in, forgets a remembered local mode.
func (a *App) Login(ctx context.Context, username, password string) (auth.State, error) {
	return a.leaveLocalMode(a.Session.Login(ctx, username, password))
}

// Register is Login for a new account.
func (a *App) Register(ctx context.Context, username, email, password string) (auth.State, error) {
	return a.leaveLocalMode(a.Session.Register(ctx, username, email, password))
}

func (a *App) leaveLocalMode(st auth.State) (auth.State, error) {
	if _, ok := st.(auth.LoggedIn); !ok {
		return st, nil
	}
	return st, a.KV.SetPreference(store.PrefLocalMode, false)
}

// Logout clears credentials and leaves local mode.
func (a *App) Logout() error {
	a.Session.Logout()
	return a.KV.SetPreference(store.PrefLocalMode, false)
}

// Shares connects to Redis on first use and returns the share inbox service.
func (a *App) Shares() (*share.Service, *store.RedisInbox, error) {
	if a.inbox == nil {
		inbox, err := store.NewRedisInbox(a.Config.Redis.Addr)
		if err != nil {
			return nil, nil, err
		}
		a.inbox = inbox
	}
	return share.NewService(a.inbox, a.Repository, a.Logger.Named("share"), a.Metrics), a.inbox, nil
}

// Close waits for cache write-throughs and closes every store.
func (a *App) Close() error {
	if a.Repository != nil {
		a.Repository.Flush()
	}
	var errs []error
	if a.inbox != nil {
		errs = append(errs, a.inbox.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.KV != nil {
		errs = append(errs, a.KV.Close())
	}
	return errors.Join(errs...)
}
