package model

import "time"

// MessageStatus represents the delivery state of a scheduled message.
// Transitions are one-directional: pending is the only non-terminal state.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusCancelled MessageStatus = "cancelled"
	StatusFailed    MessageStatus = "failed"
)

// Valid reports whether s is one of the four known statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s MessageStatus) Terminal() bool {
	return s.Valid() && s != StatusPending
}

// ScheduledMessage is one message queued for future delivery to a Slack
// channel. It is owned by the (TeamID, UserID) pair that created it and
// is never physically deleted; cancellation and dispatch outcomes are
// recorded through Status.
type ScheduledMessage struct {
	ID          int64
	ChannelID   string
	ChannelName string
	Text        string
	ScheduledAt time.Time // always UTC
	Status      MessageStatus
	TeamID      string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Channel is one Slack conversation the user may post to.
type Channel struct {
	ID        string
	Name      string
	IsPrivate bool
	IsIM      bool
	IsMpIM    bool
}
