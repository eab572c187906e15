package api

import "strings"

// Credentials supplies the bearer token for outgoing requests. Implementations
// own storage; OnUnauthorized is called after the backend rejects the token.
type Credentials interface {
	Credential() (string, bool)
	OnUnauthorized()
}

// StaticToken is a fixed credential, typically read from configuration.
type StaticToken string

func (t StaticToken) Credential() (string, bool) {
	token := strings.TrimSpace(string(t))
	return token, token != ""
}

func (StaticToken) OnUnauthorized() {}

type anonymous struct{}

func (anonymous) Credential() (string, bool) { return "", false }

func (anonymous) OnUnauthorized() {}
