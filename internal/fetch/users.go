package fetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Credentials are injected from configuration; none are compiled in.
type Credentials struct {
	Token     string
	APIKey    string
	UserAgent string
}

// UsersClient fetches user records from a REST API.
type UsersClient struct {
	client  *Client
	baseURL string
	creds   Credentials
}

// NewUsersClient wraps c for the API rooted at baseURL.
func NewUsersClient(c *Client, baseURL string, creds Credentials) *UsersClient {
	return &UsersClient{client: c, baseURL: strings.TrimRight(baseURL, "/"), creds: creds}
}

// UserURL returns the record URL for id, including profile and settings.
func (u *UsersClient) UserURL(id string) string {
	return u.baseURL + "/users/" + url.PathEscape(id) + "?include=profile,settings"
}

// FetchUser retrieves one user record.
func (u *UsersClient) FetchUser(ctx context.Context, id string) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &Error{Kind: Invalid, URL: u.baseURL, Err: ErrEmptyUserID}
	}
	if u.baseURL == "" {
		return nil, &Error{Kind: Invalid, Err: ErrNoBaseURL}
	}
	h := http.Header{}
	if u.creds.Token != "" {
		h.Set("Authorization", "Bearer "+u.creds.Token)
	}
	if u.creds.APIKey != "" {
		h.Set("X-API-Key", u.creds.APIKey)
	}
	if u.creds.UserAgent != "" {
		h.Set("User-Agent", u.creds.UserAgent)
	}
	return u.client.get(ctx, u.UserURL(id), h)
}
