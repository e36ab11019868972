package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"news-reread/internal/api"
	"news-reread/internal/metrics"
	"news-reread/internal/model"
	"news-reread/internal/store"
)

// Refresher exchanges a refresh token for a new pair. It must not itself go
// through an Authenticator.
type Refresher interface {
	RefreshToken(ctx context.Context, refresh string) (model.TokenPair, error)
}

// Authenticator is an http.RoundTripper that attaches the stored access token
// and, on a 401, refreshes it at most once per failing request.
type Authenticator struct {
	base      http.RoundTripper
	tokens    store.TokenStore
	refresher Refresher
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// mu serialises refresh attempts across in-flight requests.
	mu sync.Mutex
}

func NewAuthenticator(base http.RoundTripper, tokens store.TokenStore, refresher Refresher, logger *zap.Logger, m *metrics.Metrics) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Authenticator{
		base:      base,
		tokens:    tokens,
		refresher: refresher,
		logger:    logger,
		metrics:   m,
	}
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	if api.IsAnonymous(req) {
		return a.base.RoundTrip(req)
	}

	pair, ok := a.tokens.Get()
	if !ok {
		return a.base.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+pair.Access)
	resp, err := a.base.RoundTrip(authed)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	return a.recoverUnauthorized(req, pair.Access, resp)
}

// recoverUnauthorized runs the refresh-and-retry sequence for a request that
// was rejected while carrying used. The original response is returned when
// recovery is impossible.
func (a *Authenticator) recoverUnauthorized(req *http.Request, used string, unauthorized *http.Response) (*http.Response, error) {
	next, ok := a.nextAccessToken(req.Context(), used)
	if !ok {
		return unauthorized, nil
	}

	retry, err := replayWithBearer(req, next)
	if err != nil {
		// The body cannot be replayed, so the 401 is all we have.
		a.logger.Warn("Cannot retry request with refreshed token", zap.String("url", req.URL.Redacted()), zap.Error(err))
		return unauthorized, nil
	}
	discard(unauthorized)
	a.metrics.AuthRetry()
	return a.base.RoundTrip(retry)
}

// nextAccessToken returns the token to retry with, refreshing if no other
// request has done so since used was read. It clears the stored pair when no
// refresh token is stored or the server rejects it.
func (a *Authenticator) nextAccessToken(ctx context.Context, used string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, ok := a.tokens.Get()
	if ok && current.Access != used {
		a.metrics.TokenRefresh(metrics.OutcomeSkipped)
		return current.Access, true
	}
	if !ok || current.Refresh == "" {
		a.logger.Info("Authorization failed and no refresh token is stored")
		a.tokens.Clear()
		a.metrics.TokenRefresh(metrics.OutcomeFailure)
		return "", false
	}

	if exp, known := AccessTokenExpiry(used); known {
		a.logger.Debug("Refreshing access token", zap.Time("expired_at", exp))
	}
	pair, err := a.refresher.RefreshToken(ctx, current.Refresh)
	if err != nil {
		a.metrics.TokenRefresh(metrics.OutcomeFailure)
		if !refreshRejected(err) {
			// Network or cancellation: the refresh token may still be good.
			a.logger.Warn("Token refresh did not reach the server", zap.Error(err))
			return "", false
		}
		a.logger.Warn("Token refresh rejected, signing out", zap.Error(err))
		a.tokens.Clear()
		return "", false
	}

	a.tokens.Set(pair)
	a.metrics.TokenRefresh(metrics.OutcomeSuccess)
	return pair.Access, true
}

// refreshRejected reports whether the server answered the refresh with a
// client error, meaning the refresh token itself is no longer accepted.
func refreshRejected(err error) bool {
	var he *api.HTTPError
	return errors.As(err, &he) && he.StatusCode >= 400 && he.StatusCode < 500
}

// replayWithBearer clones req with a fresh copy of its body.
func replayWithBearer(req *http.Request, token string) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errNoReplayableBody
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
