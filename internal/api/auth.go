package api

import (
	"context"
	"net/http"
	"strings"
)

// User is the authenticated account returned by login.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// LoginResult carries the issued access token. The caller decides where to
// keep it.
type LoginResult struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// Login exchanges email and password for an access token. It never sends an
// existing credential.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "login"
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: strings.TrimSpace(email), Password: password}

	var resp LoginResult
	if err := c.do(ctx, call{op: op, method: http.MethodPost, path: []string{"users", "login"}, body: body, out: &resp, anonymous: true}); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return LoginResult{}, &Error{Kind: ErrProtocol, Op: op, Message: "response missing accessToken"}
	}
	return resp, nil
}
