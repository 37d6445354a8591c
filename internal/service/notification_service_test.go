package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNudger struct {
	mu      sync.Mutex
	hosted  map[string]bool
	polled  []string
	ended   []string
	pollErr error
}

func (f *fakeNudger) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hosted[id]
}

func (f *fakeNudger) PollHandoff(_ context.Context, id string) (conversation.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, id)
	return conversation.Snapshot{SessionID: id}, f.pollErr
}

func (f *fakeNudger) AgentEnded(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	return nil
}

type localFrames struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func (l *localFrames) SendLocal(key string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frames == nil {
		l.frames = map[string][][]byte{}
	}
	l.frames[key] = append(l.frames[key], data)
}

func newNotificationFixture() (*NotificationService, *fakeNudger, *localFrames) {
	nudger := &fakeNudger{hosted: map[string]bool{"S-here": true}}
	frames := &localFrames{}
	svc := NewNotificationService(nil, nudger, frames, "operators", logger.NewNopLogger())
	return svc, nudger, frames
}

func event(eventType, sessionID string) events.Event {
	return events.BaseEvent{
		Type:       eventType,
		Data:       map[string]interface{}{"session_id": sessionID, "status": "connected"},
		OccurredAt: time.Now(),
	}
}

func TestNotificationService_RequestReachesOperators(t *testing.T) {
	svc, nudger, frames := newNotificationFixture()

	require.NoError(t, svc.HandleEvent(context.Background(), event(events.LiveChatRequested, "S-here")))

	require.Len(t, frames.frames["operators"], 1)
	var msg dto.OperatorEventMessage
	require.NoError(t, json.Unmarshal(frames.frames["operators"][0], &msg))
	assert.Equal(t, events.LiveChatRequested, msg.Kind)
	assert.Equal(t, "S-here", msg.Data["session_id"])
	assert.Empty(t, nudger.polled, "a new request does not touch the conversation")
}

func TestNotificationService_ConnectedNudgesHostedConversation(t *testing.T) {
	svc, nudger, frames := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, event(events.LiveChatConnected, "S-here")))
	require.NoError(t, svc.HandleEvent(ctx, event(events.LiveChatConnected, "S-elsewhere")))

	assert.Equal(t, []string{"S-here"}, nudger.polled)
	assert.Empty(t, nudger.ended)
	assert.Len(t, frames.frames["operators"], 2)
}

func TestNotificationService_EndedPollsThenEnds(t *testing.T) {
	svc, nudger, _ := newNotificationFixture()

	require.NoError(t, svc.HandleEvent(context.Background(), event(events.LiveChatEnded, "S-here")))

	assert.Equal(t, []string{"S-here"}, nudger.polled)
	assert.Equal(t, []string{"S-here"}, nudger.ended)
}

func TestNotificationService_ClosedConversationIsIgnored(t *testing.T) {
	svc, nudger, _ := newNotificationFixture()
	nudger.pollErr = chaterr.ErrConversationClosed

	assert.NoError(t, svc.HandleEvent(context.Background(), event(events.LiveChatEnded, "S-here")))
	assert.Empty(t, nudger.ended)
}

func TestNotificationService_UnknownEventIsAcked(t *testing.T) {
	svc, nudger, frames := newNotificationFixture()

	assert.NoError(t, svc.HandleEvent(context.Background(), event("SOMETHING_ELSE", "S-here")))
	assert.Empty(t, nudger.polled)
	assert.Empty(t, frames.frames)
}
