package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Client exchanges client credentials for a bearer token against an
// OAuth2 client-credentials token endpoint
type Client struct {
	httpClient *http.Client
}

// NewClient returns a pointer to a new token Client instance
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthError reports a failed token exchange. It carries the raw failure detail
// for logging but never the client secret itself.
type AuthError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AcquireToken performs a single client-credentials exchange against
// {authority}/{tenantID}/oauth2/v2.0/token. No caching, no refresh: the caller
// requests a fresh token once per sync cycle.
func (c *Client) AcquireToken(ctx context.Context, authority, tenantID, clientID, clientSecret, scope string) (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authority, "/"), tenantID)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("scope", scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	zap.L().Debug("Requesting bearer token", zap.String("tokenUrl", tokenURL), zap.String("clientId", clientID))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: string(body)}
	}

	var tr tokenResponse
	if err := jsoniter.Unmarshal(body, &tr); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: "malformed token response", Err: err}
	}
	if tr.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: "token response without access_token"}
	}
	return tr.AccessToken, nil
}
