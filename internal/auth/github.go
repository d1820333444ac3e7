package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ProviderProfile is the subset of an external identity we care about.
type ProviderProfile struct {
	UserID string
	Login  string
	Email  string
}

// ProviderClient abstracts the OAuth provider the orchestrator talks to.
type ProviderClient interface {
	Name() string
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (ProviderProfile, error)
}

const (
	githubAuthorizeEndpoint = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint     = "https://github.com/login/oauth/access_token"
	githubUserEndpoint      = "https://api.github.com/user"
	githubScopes            = "read:user user:email"
)

// GitHubClient implements ProviderClient against the GitHub OAuth API.
type GitHubClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client

	tokenEndpoint string
	userEndpoint  string
}

// NewGitHubClient constructs a GitHub OAuth client.
func NewGitHubClient(clientID, clientSecret, redirectURI string) *GitHubClient {
	return &GitHubClient{
		clientID:      clientID,
		clientSecret:  clientSecret,
		redirectURI:   redirectURI,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		tokenEndpoint: githubTokenEndpoint,
		userEndpoint:  githubUserEndpoint,
	}
}

func (c *GitHubClient) Name() string { return "github" }

// AuthorizeURL builds the provider authorization URL carrying the state.
func (c *GitHubClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", githubScopes)
	q.Set("state", state)
	return githubAuthorizeEndpoint + "?" + q.Encode()
}

// ExchangeCode trades the callback code for a provider access token.
func (c *GitHubClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: exchange code: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github: exchange code: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("github: decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("github: token response missing access_token")
	}
	return body.AccessToken, nil
}

// FetchProfile retrieves the authenticated user's profile.
func (c *GitHubClient) FetchProfile(ctx context.Context, accessToken string) (ProviderProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userEndpoint, nil)
	if err != nil {
		return ProviderProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("github: fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProviderProfile{}, fmt.Errorf("github: fetch profile: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ProviderProfile{}, fmt.Errorf("github: decode profile: %w", err)
	}
	if body.ID == 0 {
		return ProviderProfile{}, fmt.Errorf("github: profile missing id")
	}
	return ProviderProfile{
		UserID: strconv.FormatInt(body.ID, 10),
		Login:  body.Login,
		Email:  body.Email,
	}, nil
}
