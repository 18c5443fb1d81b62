package driven

import (
	"context"

	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// SlackClient is the driven port for the Slack Web API. Provider-side
// rejections come back as *model.ProviderError carrying Slack's error
// string; transport failures (including timeouts) are wrapped the same
// way so callers see a single failure shape.
type SlackClient interface {
	// InstallURL builds the OAuth authorize URL the user is sent to.
	InstallURL(state string) string

	// ExchangeCode trades an authorization code for tokens and the
	// identity of the authorizing team and user.
	ExchangeCode(ctx context.Context, code string) (*model.Authorization, error)

	// ExchangeRefreshToken trades a refresh token for a new access token,
	// optionally rotating the refresh token.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*model.TokenGrant, error)

	// SendMessage posts text to a channel and returns the provider's
	// message timestamp.
	SendMessage(ctx context.Context, accessToken, channelID, text string) (string, error)

	// ListChannels returns the conversations visible to the token,
	// including private channels and DMs.
	ListChannels(ctx context.Context, accessToken string) ([]model.Channel, error)
}
