package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slackconnect/slackconnect/internal/application"
	"github.com/slackconnect/slackconnect/internal/domain/port/driven"
)

// stateTTL bounds how long an issued OAuth state parameter stays valid.
const stateTTL = 10 * time.Minute

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	messages    *application.MessageService
	tokens      *application.TokenService
	slack       driven.SlackClient
	frontendURL string
	logger      *slog.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewHandler creates a Handler with all required dependencies. frontendURL
// is where the OAuth callback redirects the browser after the exchange.
func NewHandler(
	messages *application.MessageService,
	tokens *application.TokenService,
	slack driven.SlackClient,
	frontendURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		messages:    messages,
		tokens:      tokens,
		slack:       slack,
		frontendURL: frontendURL,
		logger:      logger,
		states:      make(map[string]time.Time),
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/auth/slack", h.BeginAuth)
	mux.HandleFunc("GET /api/v1/auth/slack/callback", h.AuthCallback)
	mux.HandleFunc("GET /api/v1/auth/status", h.AuthStatus)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.RefreshToken)
	mux.HandleFunc("GET /api/v1/channels", h.ListChannels)
	mux.HandleFunc("POST /api/v1/messages/send", h.SendMessage)
	mux.HandleFunc("POST /api/v1/messages/schedule", h.ScheduleMessage)
	mux.HandleFunc("GET /api/v1/messages/scheduled", h.ListScheduled)
	mux.HandleFunc("DELETE /api/v1/messages/scheduled/{id}", h.CancelScheduled)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// BeginAuth redirects the browser to Slack's OAuth authorize page with a
// freshly issued state parameter.
func (h *Handler) BeginAuth(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	h.mu.Lock()
	for s, issued := range h.states {
		if time.Since(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = time.Now()
	h.mu.Unlock()

	http.Redirect(w, r, h.slack.InstallURL(state), http.StatusFound)
}

// AuthCallback completes the OAuth flow: it verifies the state, exchanges
// the authorization code for tokens and redirects the browser back to the
// frontend with the outcome in the query string.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.redirectFrontend(w, r, url.Values{"auth": {"error"}, "reason": {errParam}})
		return
	}

	state := q.Get("state")
	if !h.consumeState(state) {
		h.redirectFrontend(w, r, url.Values{"auth": {"error"}, "reason": {"invalid_state"}})
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectFrontend(w, r, url.Values{"auth": {"error"}, "reason": {"missing_code"}})
		return
	}

	auth, err := h.tokens.Authorize(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		h.redirectFrontend(w, r, url.Values{"auth": {"error"}, "reason": {"exchange_failed"}})
		return
	}

	h.logger.Info("workspace authorized", "team_id", auth.TeamID, "user_id", auth.UserID)
	h.redirectFrontend(w, r, url.Values{
		"auth":    {"success"},
		"team_id": {auth.TeamID},
		"user_id": {auth.UserID},
	})
}

// consumeState reports whether state was issued recently and removes it so
// it cannot be replayed.
func (h *Handler) consumeState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)

	return time.Since(issued) <= stateTTL
}

func (h *Handler) redirectFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.frontendURL+"?"+params.Encode(), http.StatusFound)
}

// AuthStatus reports whether the given team and user have a stored credential.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := ownerParams(w, r)
	if !ok {
		return
	}

	authorized, err := h.tokens.IsAuthorized(r.Context(), teamID, userID)
	if err != nil {
		h.logger.Error("failed to check auth status", "team_id", teamID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := AuthStatusResponse{Authenticated: authorized}
	if authorized {
		resp.TeamID = teamID
		resp.UserID = userID
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshToken forces a token refresh for the given team and user.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "team_id and user_id are required")
		return
	}

	token, err := h.tokens.Refresh(r.Context(), req.TeamID, req.UserID)
	if err != nil {
		h.logger.Error("manual token refresh failed", "team_id", req.TeamID, "user_id", req.UserID, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: token})
}

// ListChannels returns the conversations the stored credential can post to.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := ownerParams(w, r)
	if !ok {
		return
	}

	channels, err := h.messages.Channels(r.Context(), teamID, userID)
	if err != nil {
		h.logger.Error("failed to list channels", "team_id", teamID, "user_id", userID, "error", err)
		writeDomainError(w, err)
		return
	}

	resp := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		resp = append(resp, toChannelResponse(ch))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SendMessage posts a message to a channel immediately.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "team_id and user_id are required")
		return
	}

	ts, err := h.messages.Send(r.Context(), req.TeamID, req.UserID, req.ChannelID, req.Message)
	if err != nil {
		h.logger.Error("failed to send message", "team_id", req.TeamID, "channel_id", req.ChannelID, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{Timestamp: ts})
}

// ScheduleMessage stores a message for future delivery.
func (h *Handler) ScheduleMessage(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "team_id and user_id are required")
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp")
		return
	}

	id, err := h.messages.Schedule(r.Context(), req.TeamID, req.UserID, req.ChannelID, req.ChannelName, req.Message, scheduledAt)
	if err != nil {
		h.logger.Error("failed to schedule message", "team_id", req.TeamID, "channel_id", req.ChannelID, "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ScheduleResponse{
		ID:          id,
		ScheduledAt: scheduledAt.UTC().Format(time.RFC3339),
	})
}

// ListScheduled returns the scheduled messages owned by the given team and user.
func (h *Handler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := ownerParams(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.List(r.Context(), teamID, userID)
	if err != nil {
		h.logger.Error("failed to list scheduled messages", "team_id", teamID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		resp = append(resp, toMessageResponse(msg))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CancelScheduled cancels a pending scheduled message owned by the given
// team and user. Messages that already reached a terminal status are
// reported as not found.
func (h *Handler) CancelScheduled(w http.ResponseWriter, r *http.Request) {
	teamID, userID, ok := ownerParams(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	cancelled, err := h.messages.Cancel(r.Context(), id, teamID, userID)
	if err != nil {
		h.logger.Error("failed to cancel message", "id", id, "team_id", teamID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !cancelled {
		writeError(w, http.StatusNotFound, "pending message not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ownerParams extracts the required team_id and user_id query parameters,
// writing a 400 response when either is missing.
func ownerParams(w http.ResponseWriter, r *http.Request) (teamID, userID string, ok bool) {
	teamID = r.URL.Query().Get("team_id")
	userID = r.URL.Query().Get("user_id")
	if teamID == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "team_id and user_id are required")
		return "", "", false
	}

	return teamID, userID, true
}
