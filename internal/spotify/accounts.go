package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Scopes requested during the authorization flow. Playback control needs the
// modify scope; the rest let the UI show what is currently playing.
var Scopes = strings.Join([]string{
	"streaming",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-email",
	"user-read-private",
}, " ")

// TokenResponse is the accounts service token payload. RefreshToken is
// omitted on refresh when the prior one stays valid.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// AccountsClient talks to the Spotify accounts service (authorize + token
// endpoints). BaseURL is configurable so tests can use httptest servers.
type AccountsClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

func NewAccountsClient(baseURL, clientID, clientSecret string) *AccountsClient {
	return &AccountsClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthorizeURL builds the user-facing authorization redirect target.
func (c *AccountsClient) AuthorizeURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("scope", Scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return c.baseURL + "/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for the initial token pair.
func (c *AccountsClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.postToken(ctx, form)
}

// Refresh mints a new access token from a stored refresh token.
func (c *AccountsClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, form)
}

func (c *AccountsClient) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	tokenURL := c.baseURL + "/api/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// client authentication via HTTP Basic, per the accounts API contract
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(b))
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}
