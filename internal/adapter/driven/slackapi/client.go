// Package slackapi implements the SlackClient port using the slack-go
// library for Web API calls. The OAuth v2 token endpoints are called
// directly because their URL is not injectable through slack-go, which
// would make the exchange paths untestable against a local server.
package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlackClient = (*Client)(nil)

const (
	defaultAPIURL       = "https://slack.com/api/"
	defaultAuthorizeURL = "https://slack.com/oauth/v2/authorize"

	// installScopes are the user scopes requested at install time:
	// posting plus listing every conversation type the picker shows.
	installScopes = "chat:write,channels:read,groups:read,im:read,mpim:read"
)

// Client implements the driven.SlackClient port.
type Client struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
	apiURL       string // trailing slash, e.g. "https://slack.com/api/"
	authorizeURL string
}

// NewClient creates a Slack API client. All outbound calls share a
// 10-second timeout; a timed-out call surfaces as a ProviderError like
// any other provider failure.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		apiURL:       defaultAPIURL,
		authorizeURL: defaultAuthorizeURL,
	}
}

// NewClientWithBaseURL creates a Client whose API and authorize endpoints
// are rooted at baseURL. Intended for tests against an httptest server.
func NewClientWithBaseURL(clientID, clientSecret, redirectURL, baseURL string) *Client {
	base := strings.TrimSuffix(baseURL, "/")
	c := NewClient(clientID, clientSecret, redirectURL)
	c.apiURL = base + "/"
	c.authorizeURL = base + "/oauth/v2/authorize"
	return c
}

// InstallURL builds the OAuth authorize URL the user is redirected to.
func (c *Client) InstallURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("user_scope", installScopes)
	params.Set("redirect_uri", c.redirectURL)
	if state != "" {
		params.Set("state", state)
	}

	return c.authorizeURL + "?" + params.Encode()
}

// oauthAccessResponse mirrors the oauth.v2.access JSON envelope. Tokens
// may arrive at the top level (bot grants) or nested under authed_user
// (user grants); ExchangeCode prefers the user token as the original
// install flow does.
type oauthAccessResponse struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Team         struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	AuthedUser struct {
		ID           string `json:"id"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	} `json:"authed_user"`
	Bot struct {
		BotAccessToken string `json:"bot_access_token"`
	} `json:"bot"`
}

// ExchangeCode trades an authorization code for tokens and the identity
// of the authorizing team and user.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.Authorization, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURL)

	resp, err := c.oauthAccess(ctx, form)
	if err != nil {
		return nil, err
	}

	accessToken := resp.AuthedUser.AccessToken
	refreshToken := resp.AuthedUser.RefreshToken
	expiresIn := resp.AuthedUser.ExpiresIn
	if accessToken == "" {
		accessToken = resp.AccessToken
		refreshToken = resp.RefreshToken
		expiresIn = resp.ExpiresIn
	}
	if accessToken == "" {
		accessToken = resp.Bot.BotAccessToken
	}
	if accessToken == "" {
		return nil, &model.ProviderError{Op: "oauth.v2.access", Code: "no_access_token"}
	}

	return &model.Authorization{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TeamID:       resp.Team.ID,
		TeamName:     resp.Team.Name,
		UserID:       resp.AuthedUser.ID,
	}, nil
}

// ExchangeRefreshToken trades a refresh token for a new access token.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	resp, err := c.oauthAccess(ctx, form)
	if err != nil {
		return nil, err
	}

	accessToken := resp.AccessToken
	rotated := resp.RefreshToken
	expiresIn := resp.ExpiresIn
	if accessToken == "" {
		accessToken = resp.AuthedUser.AccessToken
		rotated = resp.AuthedUser.RefreshToken
		expiresIn = resp.AuthedUser.ExpiresIn
	}
	if accessToken == "" {
		return nil, &model.ProviderError{Op: "oauth.v2.access", Code: "no_access_token"}
	}

	return &model.TokenGrant{
		AccessToken:  accessToken,
		RefreshToken: rotated,
		ExpiresIn:    expiresIn,
	}, nil
}

// oauthAccess posts the form to oauth.v2.access and decodes the envelope.
func (c *Client) oauthAccess(ctx context.Context, form url.Values) (*oauthAccessResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"oauth.v2.access",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Op: "oauth.v2.access", Code: err.Error()}
	}
	defer httpResp.Body.Close()

	var resp oauthAccessResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode oauth response: %w", err)
	}

	if !resp.OK {
		return nil, &model.ProviderError{Op: "oauth.v2.access", Code: resp.Error}
	}

	return &resp, nil
}

// SendMessage posts text to a channel and returns Slack's message
// timestamp.
func (c *Client) SendMessage(ctx context.Context, accessToken, channelID, text string) (string, error) {
	api := c.api(accessToken)

	_, ts, err := api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", &model.ProviderError{Op: "chat.postMessage", Code: err.Error()}
	}

	return ts, nil
}

// ListChannels returns the conversations visible to the token, paging
// through public and private channels, DMs, and group DMs.
func (c *Client) ListChannels(ctx context.Context, accessToken string) ([]model.Channel, error) {
	api := c.api(accessToken)

	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel", "im", "mpim"},
		Limit:           200,
		ExcludeArchived: true,
	}

	channels := []model.Channel{}
	for {
		page, cursor, err := api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, &model.ProviderError{Op: "conversations.list", Code: err.Error()}
		}

		for _, ch := range page {
			name := ch.Name
			if name == "" {
				// DMs carry no name; synthesize one the way the UI labels them.
				name = "DM-" + ch.ID
			}
			channels = append(channels, model.Channel{
				ID:        ch.ID,
				Name:      name,
				IsPrivate: ch.IsPrivate,
				IsIM:      ch.IsIM,
				IsMpIM:    ch.IsMpIM,
			})
		}

		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	return channels, nil
}

func (c *Client) api(accessToken string) *slack.Client {
	return slack.New(accessToken,
		slack.OptionHTTPClient(c.httpClient),
		slack.OptionAPIURL(c.apiURL),
	)
}
