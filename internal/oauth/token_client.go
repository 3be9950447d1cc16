package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultHTTPTimeout is the default timeout for token endpoint requests.
	DefaultHTTPTimeout = 30 * time.Second

	// maxTokenResponseBytes caps how much of a token response is read.
	maxTokenResponseBytes = 1 << 20
)

// tokenResponse is the subset of the token endpoint response fella consumes.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenClient talks to the provider's token endpoint. It performs exactly
// one request per call and never retries.
type TokenClient struct {
	tokenURL     string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// TokenClientOption configures a TokenClient.
type TokenClientOption func(*TokenClient)

// WithTokenHTTPClient sets the HTTP client used for token requests.
func WithTokenHTTPClient(httpClient *http.Client) TokenClientOption {
	return func(c *TokenClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger *slog.Logger) TokenClientOption {
	return func(c *TokenClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenClock overrides the clock used to compute absolute expiry.
func WithTokenClock(now func() time.Time) TokenClientOption {
	return func(c *TokenClient) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenClient creates a client for the given token endpoint and
// confidential client credentials.
func NewTokenClient(tokenURL, clientID, clientSecret string, opts ...TokenClientOption) *TokenClient {
	c := &TokenClient{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: DefaultHTTPTimeout},
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExchangeCode trades an authorization code for a credential. The returned
// credential's RefreshToken is empty when the provider did not issue one.
func (c *TokenClient) ExchangeCode(ctx context.Context, code, redirectURI string) (Credential, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}
	return c.doTokenRequest(ctx, data)
}

// Refresh obtains a new access token. When the provider omits a new refresh
// token the given one is carried over.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	if refreshToken == "" {
		return Credential{}, ErrNoRefreshToken
	}

	data := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
	}

	cred, err := c.doTokenRequest(ctx, data)
	if err != nil {
		return Credential{}, err
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

func (c *TokenClient) doTokenRequest(ctx context.Context, data url.Values) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Credential{}, newTransportError(err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, newTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return Credential{}, newTransportError(err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		c.logger.Debug("Token response is not JSON",
			"status", resp.StatusCode,
			"error", err.Error())
		return Credential{}, newProtocolError("", "Failed to parse token response")
	}

	if token.Error != "" {
		c.logger.Debug("Token endpoint returned an error",
			"status", resp.StatusCode,
			"error", token.Error)
		return Credential{}, newProtocolError(token.Error, token.ErrorDescription)
	}

	if resp.StatusCode != http.StatusOK {
		return Credential{}, newProtocolError("", fmt.Sprintf("token request failed with status %d", resp.StatusCode))
	}

	if token.AccessToken == "" {
		return Credential{}, newProtocolError("", "Missing access_token in token response")
	}

	return Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(token.ExpiresIn) * time.Second).Truncate(time.Second),
	}, nil
}
