package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slackconnect/slackconnect/internal/application"
	"github.com/slackconnect/slackconnect/internal/domain/model"
)

// startScheduler runs a SchedulerService in the background with a long
// interval so only the initial pass and explicit Flush calls process
// messages. It returns after the service is accepting flush requests.
func startScheduler(t *testing.T, messages *mockMessageStore, d *application.Dispatcher) *application.SchedulerService {
	t.Helper()

	svc := application.NewSchedulerService(messages, d, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return svc
}

func TestScheduler_DispatchesDueMessages(t *testing.T) {
	creds, messages := authorizedStores(t)
	slack := &mockSlackClient{sendTS: "1.2"}
	tokens := application.NewTokenService(creds, slack)
	d := application.NewDispatcher(tokens, slack, messages)

	first := pendingMessage(messages, "T001", "U001")
	second := pendingMessage(messages, "T001", "U001")

	svc := startScheduler(t, messages, d)

	messages.mu.Lock()
	messages.due = []model.ScheduledMessage{first, second}
	messages.mu.Unlock()

	require.NoError(t, svc.Flush(context.Background()))

	assert.Len(t, slack.sends, 2)
	assert.Equal(t, model.StatusSent, messages.status(first.ID))
	assert.Equal(t, model.StatusSent, messages.status(second.ID))
}

func TestScheduler_OneFailureDoesNotBlockSiblings(t *testing.T) {
	creds, messages := authorizedStores(t)
	// Second credential owner with no stored token, so its dispatch fails.
	failing := pendingMessage(messages, "T999", "U999")
	ok := pendingMessage(messages, "T001", "U001")

	slack := &mockSlackClient{sendTS: "1.2"}
	tokens := application.NewTokenService(creds, slack)
	d := application.NewDispatcher(tokens, slack, messages)

	svc := startScheduler(t, messages, d)

	messages.mu.Lock()
	messages.due = []model.ScheduledMessage{failing, ok}
	messages.mu.Unlock()

	require.NoError(t, svc.Flush(context.Background()))

	assert.Equal(t, model.StatusFailed, messages.status(failing.ID))
	assert.Equal(t, model.StatusSent, messages.status(ok.ID))
}

func TestScheduler_DueQueryFailureSurfacesWithoutCrash(t *testing.T) {
	creds, messages := authorizedStores(t)
	slack := &mockSlackClient{sendTS: "1.2"}
	tokens := application.NewTokenService(creds, slack)
	d := application.NewDispatcher(tokens, slack, messages)

	svc := startScheduler(t, messages, d)

	messages.mu.Lock()
	messages.dueErr = errors.New("disk I/O error")
	messages.mu.Unlock()

	err := svc.Flush(context.Background())
	assert.EqualError(t, err, "disk I/O error")

	// The loop survives a failed pass; the next one works again.
	msg := pendingMessage(messages, "T001", "U001")
	messages.mu.Lock()
	messages.dueErr = nil
	messages.due = []model.ScheduledMessage{msg}
	messages.mu.Unlock()

	require.NoError(t, svc.Flush(context.Background()))
	assert.Equal(t, model.StatusSent, messages.status(msg.ID))
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	creds, messages := authorizedStores(t)
	slack := &mockSlackClient{}
	tokens := application.NewTokenService(creds, slack)
	d := application.NewDispatcher(tokens, slack, messages)

	svc := application.NewSchedulerService(messages, d, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}

	// Flush against a stopped scheduler fails with the caller's context
	// instead of hanging.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer flushCancel()
	err := svc.Flush(flushCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
