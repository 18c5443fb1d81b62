package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageStore = (*MessageRepo)(nil)

// MessageRepo is the SQLite implementation of the MessageStore port.
// Scheduled times are stored as zero-padded UTC RFC 3339 strings, so the
// scheduled_at <= ? comparison in ListDue is a correct time ordering.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo creates a MessageRepo backed by the given DB.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a new scheduled message and returns its assigned id.
// An empty status defaults to pending; any other initial status is rejected.
func (r *MessageRepo) Create(ctx context.Context, msg model.ScheduledMessage) (int64, error) {
	if msg.ChannelID == "" {
		return 0, &model.ValidationError{Field: "channel_id", Reason: "is required"}
	}
	if msg.Text == "" {
		return 0, &model.ValidationError{Field: "message", Reason: "is required"}
	}
	if msg.ScheduledAt.IsZero() {
		return 0, &model.ValidationError{Field: "scheduled_at", Reason: "is required"}
	}
	if msg.TeamID == "" {
		return 0, &model.ValidationError{Field: "team_id", Reason: "is required"}
	}
	if msg.UserID == "" {
		return 0, &model.ValidationError{Field: "user_id", Reason: "is required"}
	}

	status := msg.Status
	if status == "" {
		status = model.StatusPending
	}
	if status != model.StatusPending {
		return 0, &model.ValidationError{Field: "status", Reason: "must be pending on create"}
	}

	const query = `
		INSERT INTO scheduled_messages (channel_id, channel_name, body, scheduled_at, status, team_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		msg.ChannelID, msg.ChannelName, msg.Text, formatTime(msg.ScheduledAt),
		string(status), msg.TeamID, msg.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("create scheduled message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return id, nil
}

// ListForOwner returns all messages created by (teamID, userID), ordered
// by scheduled time ascending.
func (r *MessageRepo) ListForOwner(ctx context.Context, teamID, userID string) ([]model.ScheduledMessage, error) {
	const query = `
		SELECT id, channel_id, channel_name, body, scheduled_at, status, team_id, user_id, created_at, updated_at
		FROM scheduled_messages
		WHERE team_id = ? AND user_id = ?
		ORDER BY scheduled_at ASC
	`

	return r.queryMessages(ctx, query, teamID, userID)
}

// ListDue returns all pending messages with scheduled time at or before
// now, earliest first so backlog drains oldest-due-first.
func (r *MessageRepo) ListDue(ctx context.Context, now time.Time) ([]model.ScheduledMessage, error) {
	const query = `
		SELECT id, channel_id, channel_name, body, scheduled_at, status, team_id, user_id, created_at, updated_at
		FROM scheduled_messages
		WHERE status = 'pending' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
	`

	return r.queryMessages(ctx, query, formatTime(now))
}

// UpdateStatus transitions a message from one status to another in a
// single conditional update. Reports whether the row changed; false means
// the message no longer held the expected status.
func (r *MessageRepo) UpdateStatus(ctx context.Context, id int64, from, to model.MessageStatus) (bool, error) {
	if !from.Valid() {
		return false, &model.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", from)}
	}
	if !to.Valid() {
		return false, &model.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", to)}
	}

	const query = `
		UPDATE scheduled_messages
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update status of message %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rows > 0, nil
}

// Cancel marks a pending message cancelled. The compound condition on id,
// owner, and status makes ownership check and double-cancel protection a
// single atomic update.
func (r *MessageRepo) Cancel(ctx context.Context, id int64, teamID, userID string) (bool, error) {
	const query = `
		UPDATE scheduled_messages
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND team_id = ? AND user_id = ? AND status = 'pending'
	`

	result, err := r.db.Writer.ExecContext(ctx, query, id, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("cancel message %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *MessageRepo) queryMessages(ctx context.Context, query string, args ...any) ([]model.ScheduledMessage, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scheduled messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ScheduledMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled message: %w", err)
		}
		msgs = append(msgs, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled messages: %w", err)
	}

	return msgs, nil
}

func scanMessage(s scanner) (*model.ScheduledMessage, error) {
	var msg model.ScheduledMessage
	var status string
	var scheduledAt, createdAt, updatedAt string

	err := s.Scan(
		&msg.ID, &msg.ChannelID, &msg.ChannelName, &msg.Text,
		&scheduledAt, &status, &msg.TeamID, &msg.UserID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Status = model.MessageStatus(status)

	if msg.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, fmt.Errorf("parse scheduled_at: %w", err)
	}
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if msg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &msg, nil
}
