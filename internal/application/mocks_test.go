package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// --- Mock port implementations shared by the application tests ---

type mockCredentialStore struct {
	mu      sync.Mutex
	creds   map[string]model.Credential
	saves   int
	updates int
	saveErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[string]model.Credential)}
}

func credKey(teamID, userID string) string { return teamID + "/" + userID }

func (m *mockCredentialStore) Save(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.creds[credKey(cred.TeamID, cred.UserID)] = cred
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, teamID, userID string) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credKey(teamID, userID)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &cred, nil
}

func (m *mockCredentialStore) Update(_ context.Context, teamID, userID string, patch model.CredentialPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[credKey(teamID, userID)]
	if !ok {
		return model.ErrNotFound
	}
	m.updates++
	if patch.AccessToken != nil {
		cred.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		cred.RefreshToken = *patch.RefreshToken
	}
	if patch.ExpiresAt != nil {
		cred.ExpiresAt = *patch.ExpiresAt
	}
	m.creds[credKey(teamID, userID)] = cred
	return nil
}

type statusCall struct {
	ID       int64
	From, To model.MessageStatus
}

type mockMessageStore struct {
	mu          sync.Mutex
	nextID      int64
	created     []model.ScheduledMessage
	due         []model.ScheduledMessage
	dueErr      error
	statusCalls []statusCall
	statuses    map[int64]model.MessageStatus
}

func newMockMessageStore() *mockMessageStore {
	return &mockMessageStore{statuses: make(map[int64]model.MessageStatus)}
}

func (m *mockMessageStore) Create(_ context.Context, msg model.ScheduledMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.created = append(m.created, msg)
	m.statuses[msg.ID] = model.StatusPending
	return msg.ID, nil
}

func (m *mockMessageStore) ListForOwner(_ context.Context, teamID, userID string) ([]model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduledMessage
	for _, msg := range m.created {
		if msg.TeamID == teamID && msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageStore) ListDue(_ context.Context, _ time.Time) ([]model.ScheduledMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	due := m.due
	m.due = nil // each pass drains the queue, like a real store after dispatch
	return due, nil
}

func (m *mockMessageStore) UpdateStatus(_ context.Context, id int64, from, to model.MessageStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls = append(m.statusCalls, statusCall{ID: id, From: from, To: to})
	if m.statuses[id] != from {
		return false, nil
	}
	m.statuses[id] = to
	return true, nil
}

func (m *mockMessageStore) Cancel(_ context.Context, id int64, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses[id] != model.StatusPending {
		return false, nil
	}
	m.statuses[id] = model.StatusCancelled
	return true, nil
}

func (m *mockMessageStore) status(id int64) model.MessageStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id]
}

type sendCall struct {
	Token, ChannelID, Text string
}

type mockSlackClient struct {
	mu          sync.Mutex
	auth        *model.Authorization
	authErr     error
	grant       *model.TokenGrant
	grantErr    error
	refreshes   int
	sends       []sendCall
	sendErr     error
	sendTS      string
	channels    []model.Channel
	channelsErr error
}

func (m *mockSlackClient) InstallURL(state string) string {
	return "https://slack.test/authorize?state=" + state
}

func (m *mockSlackClient) ExchangeCode(_ context.Context, _ string) (*model.Authorization, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	return m.auth, nil
}

func (m *mockSlackClient) ExchangeRefreshToken(_ context.Context, _ string) (*model.TokenGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return nil, m.grantErr
	}
	m.refreshes++
	return m.grant, nil
}

func (m *mockSlackClient) SendMessage(_ context.Context, token, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sendCall{Token: token, ChannelID: channelID, Text: text})
	if m.sendErr != nil {
		return "", m.sendErr
	}
	return m.sendTS, nil
}

func (m *mockSlackClient) ListChannels(_ context.Context, _ string) ([]model.Channel, error) {
	if m.channelsErr != nil {
		return nil, m.channelsErr
	}
	return m.channels, nil
}
