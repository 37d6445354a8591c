package conversation

import (
	"context"
	"sync"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/form"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/chat/intent"
	"support-chat-be/pkg/chat/message"
	"support-chat-be/pkg/chat/session"
)

// RuleSource hands out the current intent router.
type RuleSource interface {
	Router(ctx context.Context) (*intent.Router, error)
}

type Options struct {
	RevealDelay   time.Duration
	FollowUpDelay time.Duration
	WriteRetries  int
	IdleTTL       time.Duration
}

type Dependencies struct {
	Messages *message.Store
	Sessions *session.Registry
	Rules    RuleSource
	Handoff  *handoff.Coordinator
	Sink     Sink
	Logger   logger.ILogger
}

// Manager owns the open conversations and reaps the idle ones.
type Manager struct {
	messages *message.Store
	sessions *session.Registry
	rules    RuleSource
	handoff  *handoff.Coordinator
	sink     Sink
	logger   logger.ILogger
	opts     Options
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	convs map[string]*Conversation
}

func NewManager(deps Dependencies, opts Options) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	sink := deps.Sink
	if sink == nil {
		sink = SinkFunc(func(RevealEvent) {})
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		messages: deps.Messages,
		sessions: deps.Sessions,
		rules:    deps.Rules,
		handoff:  deps.Handoff,
		sink:     sink,
		logger:   deps.Logger,
		opts:     opts,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		convs:    make(map[string]*Conversation),
	}
	go m.reap()
	return m
}

// get returns the open conversation for id, loading it from storage on
// first use. The session row must exist.
func (m *Manager) get(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	c, ok := m.convs[id]
	m.mu.Unlock()
	if ok {
		return c, nil
	}

	if _, err := m.sessions.Get(ctx, id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.convs[id]; ok {
		return c, nil
	}
	if m.ctx.Err() != nil {
		return nil, m.ctx.Err()
	}
	c = newConversation(m, id)
	m.convs[id] = c
	return c, nil
}

// Open ensures the session exists and returns its current state. A session
// with no history is greeted.
func (m *Manager) Open(ctx context.Context, id string) (Snapshot, error) {
	id, err := m.sessions.Ensure(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(ctx, id)
}

func (m *Manager) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	c, err := m.get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	err = c.do(ctx, func() error {
		snap = c.snapshot()
		return nil
	})
	return snap, err
}

// SubmitText stores the user's message and, unless an agent owns the
// conversation, routes it. The returned error only concerns the user
// message; replies are revealed asynchronously.
func (m *Manager) SubmitText(ctx context.Context, id, text string) (*entity.ChatMessage, error) {
	c, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	var msg *entity.ChatMessage
	err = c.do(ctx, func() error {
		var err error
		msg, err = c.submitText(ctx, text)
		return err
	})
	return msg, err
}

func (m *Manager) SubmitQuickMenu(ctx context.Context, id, intentKey string) error {
	c, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	return c.do(ctx, func() error {
		return c.submitQuickMenu(ctx, intentKey)
	})
}

func (m *Manager) SubmitForm(ctx context.Context, id, intentKey string, data map[string]interface{}) (form.Submission, error) {
	c, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	var sub form.Submission
	err = c.do(ctx, func() error {
		var err error
		sub, err = c.submitForm(ctx, intentKey, data)
		return err
	})
	return sub, err
}

func (m *Manager) SubmitFollowUp(ctx context.Context, id string, action FollowUpAction) error {
	c, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	return c.do(ctx, func() error {
		return c.submitFollowUp(ctx, action)
	})
}

// PollHandoff nudges a pending handoff to check now.
func (m *Manager) PollHandoff(ctx context.Context, id string) (Snapshot, error) {
	c, err := m.get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	err = c.do(ctx, func() error {
		c.pollHandoff()
		snap = c.snapshot()
		return nil
	})
	return snap, err
}

func (m *Manager) AgentMessage(ctx context.Context, id, text string) (*entity.ChatMessage, error) {
	c, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	var msg *entity.ChatMessage
	err = c.do(ctx, func() error {
		var err error
		msg, err = c.agentMessage(ctx, text)
		return err
	})
	return msg, err
}

// AgentEnded tells the conversation its operator closed the handoff.
func (m *Manager) AgentEnded(ctx context.Context, id string) error {
	c, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	return c.do(ctx, func() error {
		c.agentEnded()
		return nil
	})
}

// Close tears the session's conversation down. Pending reveals are
// dropped and a running handoff watch is cancelled; the stored log is kept.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	c, ok := m.convs[id]
	delete(m.convs, id)
	m.mu.Unlock()
	if ok {
		c.shutdown()
	}
	return ok
}

// Shutdown closes every conversation.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	convs := m.convs
	m.convs = make(map[string]*Conversation)
	m.mu.Unlock()

	for _, c := range convs {
		c.shutdown()
	}
	m.cancel()
}

// Has reports whether the conversation for id is open on this manager.
func (m *Manager) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.convs[id]
	return ok
}

// Len reports the number of live conversations.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs)
}

func (m *Manager) reap() {
	interval := m.opts.IdleTTL / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			cutoff := m.now().Add(-m.opts.IdleTTL)
			var idle []string
			m.mu.Lock()
			for id, c := range m.convs {
				if c.idleSince().Before(cutoff) {
					idle = append(idle, id)
				}
			}
			m.mu.Unlock()

			for _, id := range idle {
				if m.Close(id) {
					m.logger.Debug(module, "Reaped idle conversation", map[string]interface{}{
						"session_id": id,
					})
				}
			}
		}
	}
}
