package auth

import "errors"

var (
	errNoReplayableBody = errors.New("request body cannot be replayed")
)

const (
	msgLoginFailed         = "Login failed"
	msgRegistrationFailed  = "Registration failed"
	msgRegistrationUnknown = "An unknown error occurred during registration."
)
