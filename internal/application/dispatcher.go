package application

import (
	"context"
	"log/slog"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// Dispatcher sends one due message and records the outcome. Every
// attempt ends in exactly one guarded status transition out of pending,
// so a message can never sit invisibly in pending after an attempt.
// Failures are terminal; there is no automatic retry.
type Dispatcher struct {
	tokens   *TokenService
	slack    driven.SlackClient
	messages driven.MessageStore
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(tokens *TokenService, slack driven.SlackClient, messages driven.MessageStore) *Dispatcher {
	return &Dispatcher{
		tokens:   tokens,
		slack:    slack,
		messages: messages,
	}
}

// Dispatch obtains a valid token for the message's owner, posts the
// message, and transitions its status. The returned error is for the
// caller's bookkeeping only; the failure has already been recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, msg model.ScheduledMessage) error {
	token, err := d.tokens.GetValidToken(ctx, msg.TeamID, msg.UserID)
	if err != nil {
		d.markFailed(ctx, msg, err)
		return err
	}

	ts, err := d.slack.SendMessage(ctx, token, msg.ChannelID, msg.Text)
	if err != nil {
		d.markFailed(ctx, msg, err)
		return err
	}

	changed, err := d.messages.UpdateStatus(ctx, msg.ID, model.StatusPending, model.StatusSent)
	if err != nil {
		slog.Error("mark sent failed", "message", msg.ID, "error", err)
		return err
	}
	if !changed {
		// The message left pending between listing and delivery; the
		// concurrent transition (a cancellation) wins the status race.
		slog.Warn("message no longer pending after send", "message", msg.ID)
		return nil
	}

	slog.Info("scheduled message sent",
		"message", msg.ID,
		"channel", msg.ChannelID,
		"provider_ts", ts,
	)
	return nil
}

// markFailed records a terminal failure and logs the cause.
func (d *Dispatcher) markFailed(ctx context.Context, msg model.ScheduledMessage, cause error) {
	slog.Error("scheduled message dispatch failed",
		"message", msg.ID,
		"channel", msg.ChannelID,
		"error", cause,
	)

	changed, err := d.messages.UpdateStatus(ctx, msg.ID, model.StatusPending, model.StatusFailed)
	if err != nil {
		slog.Error("mark failed failed", "message", msg.ID, "error", err)
		return
	}
	if !changed {
		slog.Warn("message no longer pending after failed dispatch", "message", msg.ID)
	}
}
