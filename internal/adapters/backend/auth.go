package backend

import (
	"context"
	"net/http"
)

// Account identifies the logged-in administrator on the backend.
type Account struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// LoginResult holds the credentials returned by POST /auth/login.
type LoginResult struct {
	Account
	AccessToken  string
	RefreshToken string
}

// Tokens is a rotated credential pair. RefreshToken may be empty when the
// backend keeps the old one.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID           string   `json:"_id"`
	Username     string   `json:"username"`
	AccessToken  string   `json:"accessToken"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         *Account `json:"user"`
}

// Login authenticates an administrator (POST /auth/login).
// When the response carries no access token the account _id is used as the
// bearer credential, matching older backend deployments.
// POST: AccessToken is non-empty on success
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/auth/login", route: "/auth/login",
		body:    loginRequest{Username: username, Password: password},
		failure: "Failed to login", noAuth: true, rawMessage: true,
	}, &resp)
	if err != nil {
		return LoginResult{}, err
	}

	acct := Account{ID: resp.ID, Username: resp.Username}
	if resp.User != nil {
		if acct.ID == "" {
			acct.ID = resp.User.ID
		}
		if acct.Username == "" {
			acct.Username = resp.User.Username
		}
	}
	if acct.Username == "" {
		acct.Username = username
	}

	access := resp.AccessToken
	if access == "" {
		access = resp.Token
	}
	if access == "" {
		access = acct.ID
	}
	if access == "" {
		return LoginResult{}, ErrMalformedResponse
	}
	return LoginResult{Account: acct, AccessToken: access, RefreshToken: resp.RefreshToken}, nil
}

// Refresh exchanges a refresh token for a new access token (POST /auth/refresh-token).
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var resp struct {
		Tokens
		Success *bool `json:"success"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/auth/refresh-token", route: "/auth/refresh-token",
		body:    map[string]string{"refreshToken": refreshToken},
		failure: "Failed to refresh token", noAuth: true,
	}, &resp)
	if err != nil {
		return Tokens{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return Tokens{}, ErrSessionExpired
	}
	if resp.AccessToken == "" {
		return Tokens{}, ErrMalformedResponse
	}
	return resp.Tokens, nil
}

// Logout ends the backend session for the credentials in ctx (POST /auth/logout).
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodPost, path: "/auth/logout", route: "/auth/logout",
		failure: "Failed to logout",
	}, nil)
}

// Me returns the account behind the credentials in ctx (GET /auth/me).
func (c *Client) Me(ctx context.Context) (Account, error) {
	var out Account
	err := c.do(ctx, call{
		method: http.MethodGet, path: "/auth/me", route: "/auth/me",
		failure: "Failed to load account",
	}, &out)
	return out, err
}
