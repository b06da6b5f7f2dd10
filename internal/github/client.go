// Package github isolates every network call to the GitHub OAuth and REST
// APIs behind a small client. Membership lookups report "not a member" as a
// plain false so callers can render it as a denial, while transport and
// unexpected-status failures propagate as errors; the two outcomes are never
// conflated.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultOAuthBaseURL = "https://github.com/login/oauth"
	defaultAPIBaseURL   = "https://api.github.com"

	userAgent = "TESSA API"

	// GitHub allows 5,000 requests/hour per token; the local limiter just
	// keeps a misbehaving loop from burning the quota.
	limiterRate  = 50
	limiterBurst = 100

	maxResponseBytes = 64 << 10
)

// Identity is the authenticated GitHub profile. ID is the immutable
// provider-assigned key; Login is the mutable display handle.
type Identity struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// ExchangeError is returned when the provider answers the code exchange with
// an error payload (expired code, bad verification code, ...). It is distinct
// from a transport failure even though both abort the login attempt.
type ExchangeError struct {
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("github: code exchange rejected: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("github: code exchange rejected: %s", e.Code)
}

// Client wraps GitHub's OAuth and membership endpoints.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	oauthBaseURL string
	apiBaseURL   string
	limiter      *rate.Limiter
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURLs points the client at alternate OAuth and API endpoints
// (useful for tests against httptest servers).
func WithBaseURLs(oauthBase, apiBase string) Option {
	return func(c *Client) {
		if oauthBase != "" {
			c.oauthBaseURL = oauthBase
		}
		if apiBase != "" {
			c.apiBaseURL = apiBase
		}
	}
}

// New constructs a Client for the given OAuth application.
func New(clientID, clientSecret, redirectURI string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		oauthBaseURL: defaultOAuthBaseURL,
		apiBaseURL:   defaultAPIBaseURL,
		limiter:      rate.NewLimiter(limiterRate, limiterBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL returns the provider's authorize endpoint with the configured
// client id and redirect URI, plus the given anti-forgery state.
func (c *Client) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	if state != "" {
		params.Set("state", state)
	}
	return c.oauthBaseURL + "/authorize?" + params.Encode()
}

// ExchangeCode trades a one-time authorization code for a bearer credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	params.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.oauthBaseURL+"/access_token?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := decodeBody(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("github: decode token response: %w", err)
	}
	if payload.Error != "" {
		return "", &ExchangeError{Code: payload.Error, Description: payload.ErrorDescription}
	}
	if payload.AccessToken == "" {
		return "", errors.New("github: token response missing access_token")
	}
	return payload.AccessToken, nil
}

// FetchIdentity fetches the authenticated profile for the token.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	resp, err := c.get(ctx, accessToken, "/user")
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("github: fetch identity: unexpected status %d", resp.StatusCode)
	}
	var identity Identity
	if err := decodeBody(resp.Body, &identity); err != nil {
		return Identity{}, fmt.Errorf("github: decode identity: %w", err)
	}
	if identity.ID == 0 {
		return Identity{}, errors.New("github: identity response missing id")
	}
	return identity, nil
}

// IsOrgMember reports whether the user is a public member of the
// organization. Any non-membership status, including 404, is false rather
// than an error.
func (c *Client) IsOrgMember(ctx context.Context, accessToken, username, org string) (bool, error) {
	resp, err := c.get(ctx, accessToken, fmt.Sprintf("/orgs/%s/members/%s",
		url.PathEscape(org), url.PathEscape(username)))
	if err != nil {
		return false, err
	}
	defer drain(resp)

	return resp.StatusCode == http.StatusNoContent, nil
}

// IsTeamMember reports whether the user has an active membership in the
// team. A pending membership and a 404 both read as false; any other status
// is an undetermined lookup and surfaces as an error.
func (c *Client) IsTeamMember(ctx context.Context, accessToken, username, org, team string) (bool, error) {
	resp, err := c.get(ctx, accessToken, fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s",
		url.PathEscape(org), url.PathEscape(team), url.PathEscape(username)))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var membership struct {
			State string `json:"state"`
		}
		if err := decodeBody(resp.Body, &membership); err != nil {
			return false, fmt.Errorf("github: decode team membership: %w", err)
		}
		return membership.State == "active", nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("github: team membership lookup: unexpected status %d", resp.StatusCode)
	}
}

// IsRepoCollaborator reports whether the user has collaborator access to the
// repository, identified as "owner/name".
func (c *Client) IsRepoCollaborator(ctx context.Context, accessToken, username, repo string) (bool, error) {
	resp, err := c.get(ctx, accessToken, fmt.Sprintf("/repos/%s/collaborators/%s",
		repo, url.PathEscape(username)))
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("github: collaborator lookup: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) get(ctx context.Context, accessToken, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+accessToken)
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("github: rate limit wait: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func decodeBody(body io.Reader, dst any) error {
	return json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(dst)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
