package driven

import (
	"context"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// MessageStore is the driven port for durable scheduled-message
// persistence. All status mutations are single conditional updates so a
// user cancellation racing a scheduler dispatch can never both win.
type MessageStore interface {
	// Create inserts a new message with status pending and returns its id.
	// Returns a *model.ValidationError when channel id, text, scheduled
	// time, team id, or user id is missing.
	Create(ctx context.Context, msg model.ScheduledMessage) (int64, error)

	// ListForOwner returns all messages created by the pair, ordered by
	// scheduled time ascending.
	ListForOwner(ctx context.Context, teamID, userID string) ([]model.ScheduledMessage, error)

	// ListDue returns all pending messages with scheduled time at or
	// before now, earliest first.
	ListDue(ctx context.Context, now time.Time) ([]model.ScheduledMessage, error)

	// UpdateStatus transitions a message from one status to another in a
	// single conditional update. It reports whether a row changed; false
	// means the message no longer held the expected status.
	UpdateStatus(ctx context.Context, id int64, from, to model.MessageStatus) (bool, error)

	// Cancel marks a pending message cancelled, but only when id, team,
	// and user all match. Reports whether a row changed.
	Cancel(ctx context.Context, id int64, teamID, userID string) (bool, error)
}
