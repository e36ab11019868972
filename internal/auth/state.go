package auth

import "news-reread/internal/model"

// State is the authentication state. It is one of Loading, LoggedOut,
// LoggedIn, LocalMode or Error.
type State interface {
	isState()
}

type Loading struct{}

type LoggedOut struct{}

type LoggedIn struct {
	User model.User
}

// LocalMode bypasses authentication; the repository serves the cache only.
type LocalMode struct{}

type Error struct {
	Message string
}

func (Loading) isState()   {}
func (LoggedOut) isState() {}
func (LoggedIn) isState()  {}
func (LocalMode) isState() {}
func (Error) isState()     {}

// Describe renders a state for logs and terminal output.
func Describe(s State) string {
	switch st := s.(type) {
	case Loading:
		return "loading"
	case LoggedOut:
		return "logged out"
	case LoggedIn:
		return "logged in as " + st.User.Username
	case LocalMode:
		return "local mode"
	case Error:
		return "error: " + st.Message
	default:
		panic("auth: unknown state")
	}
}
