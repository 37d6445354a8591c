package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/testdb"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/chat/intent"
	"support-chat-be/pkg/chat/message"
	"support-chat-be/pkg/chat/session"
	"support-chat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type recordingMailer struct {
	sent chan *entity.LiveChatRequest
}

func (m *recordingMailer) SendHandoffAlert(_ string, req *entity.LiveChatRequest) error {
	m.sent <- req
	return nil
}

type engine struct {
	chat      IChatService
	liveChat  ILiveChatService
	manager   *conversation.Manager
	handoff   *handoff.Coordinator
	publisher *recordingPublisher
	mailer    *recordingMailer
	states    chan conversation.RevealEvent
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()
	factory := testdb.Factory(t)
	_, err := intent.SeedDefaults(ctx, factory)
	require.NoError(t, err)

	e := &engine{
		publisher: &recordingPublisher{},
		mailer:    &recordingMailer{sent: make(chan *entity.LiveChatRequest, 4)},
		states:    make(chan conversation.RevealEvent, 512),
	}
	store := message.NewStore(factory, log)
	sessions := session.NewRegistry(factory, store, log)
	e.handoff = handoff.NewCoordinator(factory, 5*time.Millisecond, time.Minute, log)
	e.manager = conversation.NewManager(conversation.Dependencies{
		Messages: store,
		Sessions: sessions,
		Rules:    intent.NewLoader(factory, time.Minute, log),
		Handoff:  e.handoff,
		Sink: conversation.SinkFunc(func(ev conversation.RevealEvent) {
			if ev.Kind == conversation.KindState {
				e.states <- ev
			}
		}),
		Logger: log,
	}, conversation.Options{
		RevealDelay:   2 * time.Millisecond,
		FollowUpDelay: 2 * time.Millisecond,
		WriteRetries:  1,
	})
	t.Cleanup(e.manager.Shutdown)

	e.chat = NewChatService(ChatServiceDeps{
		Manager:       e.manager,
		Sessions:      sessions,
		Messages:      store,
		Handoff:       e.handoff,
		Publisher:     e.publisher,
		Mailer:        e.mailer,
		OperatorInbox: "ops@example.com",
		Logger:        log,
	})
	e.liveChat = NewLiveChatService(e.handoff, e.manager, e.publisher, log)
	return e
}

func (e *engine) settle(t *testing.T, want conversation.State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-e.states:
			if ev.State == want {
				return
			}
		case <-timeout:
			t.Fatalf("never reached %s", want)
		}
	}
}

func (e *engine) open(t *testing.T) string {
	t.Helper()
	res, err := e.chat.EnsureSession(context.Background(), &dto.CreateSessionRequest{})
	require.NoError(t, err)
	e.settle(t, conversation.StateIdle)
	return res.SessionId
}

func TestChatService_EnsureSessionKeepsGivenID(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.chat.EnsureSession(ctx, &dto.CreateSessionRequest{SessionId: "web_42"})
	require.NoError(t, err)
	assert.Equal(t, "web_42", res.SessionId)

	_, err = e.chat.EnsureSession(ctx, &dto.CreateSessionRequest{SessionId: "bad id!"})
	assert.True(t, errors.Is(err, chaterr.ErrValidationFailed))
}

func TestChatService_HistoryAndOverview(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.open(t)

	msg, err := e.chat.SubmitUserText(ctx, id, &dto.SendMessageRequest{Text: "버그 있어요"})
	require.NoError(t, err)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "text", msg.Type)
	e.settle(t, conversation.StateFormOpen)

	history, err := e.chat.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "form", history[3].Type)
	assert.Equal(t, "bug_report", history[3].Intent)

	overview, err := e.chat.GetOverview(ctx)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, id, overview[0].Id)

	read, err := e.chat.MarkRead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), read.SeenCount)

	_, err = e.chat.GetHistory(ctx, "S-missing")
	assert.True(t, errors.Is(err, chaterr.ErrSessionNotFound))
}

func TestChatService_FormSubmissionPublishesEvent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.open(t)

	_, err := e.chat.SubmitQuickMenu(ctx, id, &dto.QuickMenuRequest{Intent: "usage_inquiry"})
	require.NoError(t, err)
	e.settle(t, conversation.StateFormOpen)

	res, err := e.chat.SubmitForm(ctx, id, "usage_inquiry", &dto.SubmitFormRequest{
		Data: map[string]interface{}{"content": "  비밀번호는 어떻게 바꾸나요?  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "usage_inquiry", res.Intent)

	require.Equal(t, []string{events.FormSubmitted}, e.publisher.types())
	data := e.publisher.events[0].Payload()
	assert.Equal(t, id, data["session_id"])
	assert.Equal(t, "비밀번호는 어떻게 바꾸나요?", data["fields"].(map[string]interface{})["content"])
}

func TestChatService_AgentRequestAlertsOperators(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.open(t)

	_, err := e.chat.SubmitQuickMenu(ctx, id, &dto.QuickMenuRequest{Intent: "agent_connect"})
	require.NoError(t, err)
	e.settle(t, conversation.StateFormOpen)

	res, err := e.chat.SubmitForm(ctx, id, "agent_connect", &dto.SubmitFormRequest{
		Data: map[string]interface{}{"customerName": "홍길동", "customerContact": "010-0000-0000", "inquiryType": "payment"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(conversation.StateHandoffPending), res.Session.State)
	assert.Equal(t, []string{events.LiveChatRequested}, e.publisher.types())

	select {
	case req := <-e.mailer.sent:
		assert.Equal(t, id, req.ChatSessionId)
	case <-time.After(time.Second):
		t.Fatal("operator alert not sent")
	}

	status, err := e.chat.PollHandoffStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, status.Request)
	assert.Equal(t, "waiting", status.Request.Status)
}

func TestLiveChatService_ConnectMessageEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.open(t)

	_, err := e.chat.SubmitQuickMenu(ctx, id, &dto.QuickMenuRequest{Intent: "agent_connect"})
	require.NoError(t, err)
	e.settle(t, conversation.StateFormOpen)
	_, err = e.chat.SubmitForm(ctx, id, "agent_connect", &dto.SubmitFormRequest{
		Data: map[string]interface{}{"customerName": "홍길동", "customerContact": "010", "inquiryType": "etc"},
	})
	require.NoError(t, err)

	waiting, err := e.liveChat.ListWaiting(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	reqID := waiting[0].Id

	_, err = e.liveChat.SendAgentMessage(ctx, reqID, &dto.AgentMessageRequest{Text: "안녕하세요"})
	assert.True(t, errors.Is(err, chaterr.ErrInvalidTransition), "not connected yet")

	connected, err := e.liveChat.Connect(ctx, reqID, "agent-7")
	require.NoError(t, err)
	assert.Equal(t, "connected", connected.Status)
	require.NotNil(t, connected.AgentId)
	assert.Equal(t, "agent-7", *connected.AgentId)
	e.settle(t, conversation.StateHandoffActive)

	_, err = e.liveChat.Connect(ctx, reqID, "agent-8")
	assert.True(t, errors.Is(err, chaterr.ErrInvalidTransition))

	reply, err := e.liveChat.SendAgentMessage(ctx, reqID, &dto.AgentMessageRequest{Text: "무엇을 도와드릴까요?"})
	require.NoError(t, err)
	assert.Equal(t, "assistant", reply.Role)

	ended, err := e.liveChat.End(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, "ended", ended.Status)
	e.settle(t, conversation.StateIdle)

	assert.Equal(t, []string{events.LiveChatRequested, events.LiveChatConnected, events.LiveChatEnded}, e.publisher.types())
}

func TestChatService_Close(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.open(t)

	require.NoError(t, e.chat.Close(ctx, id))
	assert.False(t, e.manager.Has(id))
	assert.True(t, errors.Is(e.chat.Close(ctx, "S-missing"), chaterr.ErrSessionNotFound))
}
