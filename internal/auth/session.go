package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"news-reread/internal/api"
	"news-reread/internal/model"
	"news-reread/internal/observe"
	"news-reread/internal/store"
)

// AccountAPI is the part of the remote API the session drives.
type AccountAPI interface {
	Login(ctx context.Context, username, password string) (model.TokenPair, error)
	Register(ctx context.Context, username, email, password string) (model.User, error)
	CurrentUser(ctx context.Context) (model.User, error)
}

// Session owns the token store and moves between authentication states.
type Session struct {
	api    AccountAPI
	tokens store.TokenStore
	logger *zap.Logger
	state  *observe.Value[State]
}

// NewSession starts in Loading; call Restore to settle the initial state.
func NewSession(accounts AccountAPI, tokens store.TokenStore, logger *zap.Logger) *Session {
	return &Session{
		api:    accounts,
		tokens: tokens,
		logger: logger,
		state:  observe.NewValue[State](Loading{}),
	}
}

func (s *Session) State() State {
	return s.state.Load()
}

// Changes is closed on the next state transition.
func (s *Session) Changes() <-chan struct{} {
	return s.state.Changed()
}

// HasCredentials reports whether remote calls should be made. It is false in
// local mode regardless of any stored token.
func (s *Session) HasCredentials() bool {
	if _, local := s.State().(LocalMode); local {
		return false
	}
	_, ok := s.tokens.Get()
	return ok
}

func (s *Session) set(st State) State {
	s.state.Store(st)
	s.logger.Debug("Auth state changed", zap.String("state", Describe(st)))
	return st
}

// Restore checks a stored token against the server. Any failure signs out.
func (s *Session) Restore(ctx context.Context) State {
	if _, ok := s.tokens.Get(); !ok {
		return s.set(LoggedOut{})
	}

	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.logger.Info("Stored session is no longer valid", zap.Error(err))
		s.tokens.Clear()
		return s.set(LoggedOut{})
	}
	return s.set(LoggedIn{User: user})
}

func (s *Session) Login(ctx context.Context, username, password string) State {
	s.set(Loading{})

	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("Login failed", zap.String("username", username), zap.Error(err))
		return s.set(Error{Message: loginMessage(err)})
	}
	s.tokens.Set(pair)
	return s.Restore(ctx)
}

// Register creates the account and logs straight in with the same credentials.
func (s *Session) Register(ctx context.Context, username, email, password string) State {
	s.set(Loading{})

	if _, err := s.api.Register(ctx, username, email, password); err != nil {
		s.logger.Warn("Registration failed", zap.String("username", username), zap.Error(err))
		return s.set(Error{Message: registrationMessage(err)})
	}
	return s.Login(ctx, username, password)
}

func (s *Session) Logout() State {
	s.tokens.Clear()
	return s.set(LoggedOut{})
}

// UseLocalMode skips authentication. Only Logout leaves this state.
func (s *Session) UseLocalMode() State {
	return s.set(LocalMode{})
}

func loginMessage(err error) string {
	var he *api.HTTPError
	if errors.As(err, &he) {
		if d := he.Detail(); d != "" {
			return d
		}
	}
	if err.Error() == "" {
		return msgLoginFailed
	}
	return err.Error()
}
