package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it with the given status code.
// If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps a domain error to its HTTP status: validation
// failures become 400, missing resources 404, provider rejections 502,
// everything else 500 with the detail kept out of the response body.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not authorized with slack")
		return
	}
	if errors.Is(err, model.ErrNoRefreshToken) {
		writeError(w, http.StatusConflict, "credential has no refresh token")
		return
	}

	var pe *model.ProviderError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadGateway, pe.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal server error")
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// InstallURLResponse carries the OAuth authorize URL to redirect the user to.
type InstallURLResponse struct {
	InstallURL string `json:"install_url"`
}

// AuthStatusResponse reports whether a (team, user) pair is authorized.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	TeamID        string `json:"team_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
}

// RefreshResponse carries the access token produced by a manual refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// ChannelResponse is the JSON representation of a postable conversation.
type ChannelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	IsIM      bool   `json:"is_im"`
	IsMpIM    bool   `json:"is_mpim"`
}

// SendResponse reports a completed immediate send.
type SendResponse struct {
	Timestamp string `json:"timestamp"`
}

// ScheduleRequest is the JSON body for the schedule endpoint.
type ScheduleRequest struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Message     string `json:"message"`
	ScheduledAt string `json:"scheduled_at"` // RFC 3339
	TeamID      string `json:"team_id"`
	UserID      string `json:"user_id"`
}

// SendRequest is the JSON body for the immediate send endpoint.
type SendRequest struct {
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
	TeamID    string `json:"team_id"`
	UserID    string `json:"user_id"`
}

// RefreshRequest is the JSON body for the manual token refresh endpoint.
type RefreshRequest struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// ScheduleResponse reports a newly created scheduled message.
type ScheduleResponse struct {
	ID          int64  `json:"id"`
	ScheduledAt string `json:"scheduled_at"`
}

// MessageResponse is the JSON representation of a scheduled message.
type MessageResponse struct {
	ID          int64  `json:"id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Message     string `json:"message"`
	ScheduledAt string `json:"scheduled_at"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toChannelResponse converts a domain Channel to its JSON representation.
func toChannelResponse(ch model.Channel) ChannelResponse {
	return ChannelResponse{
		ID:        ch.ID,
		Name:      ch.Name,
		IsPrivate: ch.IsPrivate,
		IsIM:      ch.IsIM,
		IsMpIM:    ch.IsMpIM,
	}
}

// toMessageResponse converts a domain ScheduledMessage to its JSON representation.
func toMessageResponse(msg model.ScheduledMessage) MessageResponse {
	return MessageResponse{
		ID:          msg.ID,
		ChannelID:   msg.ChannelID,
		ChannelName: msg.ChannelName,
		Message:     msg.Text,
		ScheduledAt: msg.ScheduledAt.UTC().Format(time.RFC3339),
		Status:      string(msg.Status),
		CreatedAt:   msg.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   msg.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
