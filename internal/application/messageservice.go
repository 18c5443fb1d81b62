package application

import (
	"context"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// MessageService implements the user-facing messaging operations:
// immediate sends, scheduling, listing, cancellation, and the channel
// picker. It operates on disjoint code paths from the scheduler loop;
// both serialize through the store's per-row conditional updates.
type MessageService struct {
	messages driven.MessageStore
	tokens   *TokenService
	slack    driven.SlackClient
	now      func() time.Time
}

// NewMessageService creates a MessageService.
func NewMessageService(messages driven.MessageStore, tokens *TokenService, slack driven.SlackClient) *MessageService {
	return &MessageService{
		messages: messages,
		tokens:   tokens,
		slack:    slack,
		now:      time.Now,
	}
}

// Schedule validates and stores a message for future delivery, returning
// its id. Scheduled times at or before the current time are rejected.
func (s *MessageService) Schedule(ctx context.Context, teamID, userID, channelID, channelName, text string, scheduledAt time.Time) (int64, error) {
	if !scheduledAt.UTC().After(s.now().UTC()) {
		return 0, &model.ValidationError{Field: "scheduled_at", Reason: "must be in the future"}
	}

	return s.messages.Create(ctx, model.ScheduledMessage{
		ChannelID:   channelID,
		ChannelName: channelName,
		Text:        text,
		ScheduledAt: scheduledAt.UTC(),
		Status:      model.StatusPending,
		TeamID:      teamID,
		UserID:      userID,
	})
}

// List returns all scheduled messages owned by the pair, earliest first.
func (s *MessageService) List(ctx context.Context, teamID, userID string) ([]model.ScheduledMessage, error) {
	return s.messages.ListForOwner(ctx, teamID, userID)
}

// Cancel marks a still-pending message owned by the pair as cancelled.
// It reports false when the message belongs to someone else, is already
// terminal, or does not exist.
func (s *MessageService) Cancel(ctx context.Context, id int64, teamID, userID string) (bool, error) {
	return s.messages.Cancel(ctx, id, teamID, userID)
}

// Send posts a message immediately and returns the provider's message
// timestamp.
func (s *MessageService) Send(ctx context.Context, teamID, userID, channelID, text string) (string, error) {
	if channelID == "" {
		return "", &model.ValidationError{Field: "channel_id", Reason: "is required"}
	}
	if text == "" {
		return "", &model.ValidationError{Field: "message", Reason: "is required"}
	}

	token, err := s.tokens.GetValidToken(ctx, teamID, userID)
	if err != nil {
		return "", err
	}

	return s.slack.SendMessage(ctx, token, channelID, text)
}

// Channels returns the conversations the pair's token can post to.
func (s *MessageService) Channels(ctx context.Context, teamID, userID string) ([]model.Channel, error) {
	token, err := s.tokens.GetValidToken(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}

	return s.slack.ListChannels(ctx, token)
}
