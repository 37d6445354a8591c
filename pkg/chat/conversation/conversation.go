// Package conversation sequences a support chat: it persists user input,
// routes free text, reveals replies with typing delays, opens forms and
// drives the live-agent handoff.
//
// Each open session is owned by one worker goroutine. Every transition,
// including fired timers and handoff callbacks, runs on that goroutine, so
// the per-session state needs no locks. Timers carry the epoch they were
// scheduled in and are dropped if the epoch moved on.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"support-chat-be/internal/entity"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/form"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/chat/intent"

	"github.com/google/uuid"
)

const module = "Conversation"

// MaxTextLength is the longest free-text message accepted, in characters.
const MaxTextLength = 2000

type task struct {
	epoch uint64 // 0 runs regardless of epoch
	fn    func()
}

type step struct {
	delay   time.Duration
	payload entity.Payload
}

// batch is a run of reveals. done sets the state the batch settles in.
type batch struct {
	steps []step
	next  int
	timer *time.Timer
	done  func()
}

type Conversation struct {
	id string
	m  *Manager

	queue     chan task
	quit      chan struct{}
	closeOnce sync.Once

	lastActive atomic.Int64

	// owned by the worker goroutine
	state     State
	epoch     uint64
	quickMenu bool
	followUp  bool
	openForm  string
	lastAt    time.Time
	batch     *batch
	watch     *handoff.Watch
}

func newConversation(m *Manager, id string) *Conversation {
	c := &Conversation{
		id:    id,
		m:     m,
		queue: make(chan task, 64),
		quit:  make(chan struct{}),
		state: StateIdle,
		epoch: 1,
	}
	c.touch()
	// load is queued first so every later task sees the restored state
	c.queue <- task{fn: c.load}
	go c.run()
	return c
}

func (c *Conversation) run() {
	for {
		select {
		case <-c.quit:
			return
		case t := <-c.queue:
			if t.epoch != 0 && t.epoch != c.epoch {
				continue
			}
			t.fn()
		}
	}
}

func (c *Conversation) touch() {
	c.lastActive.Store(c.m.now().UnixNano())
}

func (c *Conversation) idleSince() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// do runs fn on the worker and waits for its result.
func (c *Conversation) do(ctx context.Context, fn func() error) error {
	c.touch()
	reply := make(chan error, 1)
	t := task{fn: func() { reply <- fn() }}

	select {
	case c.queue <- t:
	case <-c.quit:
		return chaterr.ErrConversationClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// once queued the task runs, so its result is what the caller gets
	select {
	case err := <-reply:
		return err
	case <-c.quit:
		return chaterr.ErrConversationClosed
	}
}

// post queues fn from a timer or callback goroutine.
func (c *Conversation) post(epoch uint64, fn func()) {
	select {
	case c.queue <- task{epoch: epoch, fn: fn}:
	case <-c.quit:
	}
}

// shutdown tears the conversation down and stops the worker. Pending
// reveals are dropped and the handoff watch is cancelled.
func (c *Conversation) shutdown() {
	_ = c.do(context.Background(), func() error {
		c.teardown()
		return nil
	})
	c.closeOnce.Do(func() { close(c.quit) })
}

func (c *Conversation) teardown() {
	c.epoch++
	if c.batch != nil {
		c.batch.timer.Stop()
		c.batch = nil
	}
	c.stopWatch()
}

// stamp returns the next creation time for this session. Times strictly
// increase so created_at alone orders the log.
func (c *Conversation) stamp() time.Time {
	now := c.m.now().UTC().Truncate(time.Microsecond)
	if !now.After(c.lastAt) {
		now = c.lastAt.Add(time.Microsecond)
	}
	c.lastAt = now
	return now
}

func (c *Conversation) newMessage(role entity.MessageRole, p entity.Payload) *entity.ChatMessage {
	return &entity.ChatMessage{
		Id:        uuid.New(),
		SessionId: c.id,
		Role:      role,
		Payload:   p,
		CreatedAt: c.stamp(),
	}
}

func (c *Conversation) snapshot() Snapshot {
	return Snapshot{
		SessionID:     c.id,
		State:         c.state,
		ShowQuickMenu: c.quickMenu,
		ShowFollowUp:  c.followUp,
		OpenForm:      c.openForm,
	}
}

func (c *Conversation) emit(kind EventKind, msg *entity.ChatMessage, text string) {
	c.m.sink.Deliver(RevealEvent{
		SessionID:     c.id,
		Kind:          kind,
		Message:       msg,
		Text:          text,
		State:         c.state,
		ShowQuickMenu: c.quickMenu,
		ShowFollowUp:  c.followUp,
		OpenForm:      c.openForm,
	})
}

func (c *Conversation) setState(s State) {
	c.state = s
	c.emit(KindState, nil, "")
}

// reveal shows an assistant message and stores it. The event goes out
// first; the write is retried and a final failure is only logged.
func (c *Conversation) reveal(p entity.Payload) *entity.ChatMessage {
	msg := c.newMessage(entity.MessageRoleAssistant, p)
	c.emit(kindFor(p), msg, "")

	var err error
	for attempt := 0; attempt <= c.m.opts.WriteRetries; attempt++ {
		if err = c.m.messages.Save(c.m.ctx, msg); err == nil || !chaterr.Retryable(err) {
			break
		}
	}
	if err != nil {
		c.m.logger.Error(module, "Revealed message was not stored", map[string]interface{}{
			"session_id": c.id,
			"message_id": msg.Id.String(),
			"error":      err.Error(),
		})
	}
	return msg
}

func (c *Conversation) syncSeen() {
	if _, err := c.m.sessions.SyncSeen(c.m.ctx, c.id); err != nil {
		c.m.logger.Warn(module, "Seen sync failed", map[string]interface{}{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}
}

// startBatch schedules steps one after another, each preceded by a typing
// indicator and its delay.
func (c *Conversation) startBatch(steps []step, done func()) {
	c.flush()
	c.quickMenu = false
	c.followUp = false
	c.batch = &batch{steps: steps, done: done}
	c.setState(StateRevealing)
	c.advance()
}

func (c *Conversation) advance() {
	b := c.batch
	if b.next >= len(b.steps) {
		c.batch = nil
		c.finish(b)
		return
	}

	c.emit(KindTyping, nil, "")
	epoch := c.epoch
	b.timer = time.AfterFunc(b.steps[b.next].delay, func() {
		c.post(epoch, c.revealNext)
	})
}

func (c *Conversation) revealNext() {
	b := c.batch
	if b == nil {
		return
	}
	c.touch()
	s := b.steps[b.next]
	b.next++
	c.reveal(s.payload)
	c.advance()
}

func (c *Conversation) finish(b *batch) {
	b.done()
	c.emit(KindState, nil, "")
	c.syncSeen()
}

// flush reveals whatever is still scheduled right away so new input never
// overtakes an earlier reply.
func (c *Conversation) flush() {
	b := c.batch
	if b == nil {
		return
	}
	b.timer.Stop()
	c.epoch++
	c.batch = nil
	for ; b.next < len(b.steps); b.next++ {
		c.reveal(b.steps[b.next].payload)
	}
	c.finish(b)
}

func (c *Conversation) stopWatch() {
	if c.watch != nil {
		c.watch.Stop()
		c.watch = nil
	}
}

// load restores the conversation from the stored log, or greets a new one.
func (c *Conversation) load() {
	ctx := c.m.ctx
	msgs, err := c.m.messages.List(ctx, c.id)
	if err != nil {
		c.m.logger.Warn(module, "History unavailable, starting fresh", map[string]interface{}{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}
	if len(msgs) == 0 {
		c.greet()
		return
	}
	c.lastAt = msgs[len(msgs)-1].CreatedAt

	var lastAssistant *entity.ChatMessage
	lastText := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsAssistant() {
			continue
		}
		if lastAssistant == nil {
			lastAssistant = msgs[i]
		}
		if t := entity.PayloadText(msgs[i].Payload); t != "" {
			lastText = t
			break
		}
	}

	latest, err := c.m.handoff.Latest(ctx, c.id)
	if err != nil {
		c.m.logger.Warn(module, "Handoff status unavailable on restore", map[string]interface{}{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}

	switch {
	case latest != nil && latest.Status == entity.LiveChatStatusConnected:
		c.state = StateHandoffActive
	case latest != nil && latest.Status == entity.LiveChatStatusWaiting && lastText == WaitingText:
		c.state = StateHandoffPending
		c.startWatch(latest.CreatedAt)
	case lastAssistant != nil && lastAssistant.Payload.Type() == entity.PayloadTypeForm:
		c.state = StateFormOpen
		c.openForm = lastAssistant.Payload.(entity.FormPayload).Intent
	case lastText == ClosingText:
		c.state = StateClosed
	case lastText == FollowUpText:
		c.followUp = true
	default:
		c.quickMenu = true
	}
	c.emit(KindState, nil, "")
	c.syncSeen()
}

func (c *Conversation) greet() {
	c.startBatch([]step{{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: GreetingText}}}, func() {
		c.state = StateIdle
		c.quickMenu = true
	})
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty message: %w", chaterr.ErrValidationFailed)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", fmt.Errorf("message longer than %d characters: %w", MaxTextLength, chaterr.ErrValidationFailed)
	}
	return text, nil
}

func (c *Conversation) submitText(ctx context.Context, text string) (*entity.ChatMessage, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	// the caller gave up while the task was queued
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.flush()
	msg := c.newMessage(entity.MessageRoleUser, entity.TextPayload{Text: text})
	if err := c.m.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	c.emit(KindMessage, msg, "")

	// a human owns the conversation while a handoff is open
	if c.state == StateHandoffPending || c.state == StateHandoffActive {
		return msg, nil
	}

	c.openForm = ""
	c.quickMenu = false
	c.followUp = false
	c.setState(StateAwaitingRoute)

	router, err := c.m.rules.Router(ctx)
	if err != nil {
		c.m.logger.Warn(module, "Routing with degraded rules", map[string]interface{}{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}
	c.startBatch(c.routeSteps(router.Route(text)))
	return msg, nil
}

func (c *Conversation) routeSteps(res intent.Result) ([]step, func()) {
	reply := res.Reply
	if reply == "" {
		reply = intent.FallbackReply
	}
	first := step{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: reply}}

	switch {
	case !res.Matched:
		return []step{first}, func() {
			c.state = StateIdle
			c.quickMenu = true
		}
	case form.Has(res.Intent):
		return []step{first, {delay: c.m.opts.FollowUpDelay, payload: entity.FormPayload{Intent: res.Intent}}}, func() {
			c.state = StateFormOpen
			c.openForm = res.Intent
		}
	}
	return c.withFollowUp(first)
}

func (c *Conversation) withFollowUp(first step) ([]step, func()) {
	return []step{first, {delay: c.m.opts.FollowUpDelay, payload: entity.TextPayload{Text: FollowUpText}}}, func() {
		c.state = StateIdle
		c.followUp = true
	}
}

func (c *Conversation) submitQuickMenu(ctx context.Context, key string) error {
	switch c.state {
	case StateHandoffPending, StateHandoffActive:
		return fmt.Errorf("quick menu during handoff: %w", chaterr.ErrInvalidTransition)
	case StateClosed:
		return fmt.Errorf("quick menu after close: %w", chaterr.ErrConversationClosed)
	}
	label, ok := QuickMenuLabel(key)
	if !ok {
		return fmt.Errorf("quick menu %q: %w", key, chaterr.ErrValidationFailed)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	c.flush()
	msg := c.newMessage(entity.MessageRoleUser, entity.TextPayload{Text: label})
	if err := c.m.messages.Save(ctx, msg); err != nil {
		return err
	}
	c.emit(KindMessage, msg, "")
	c.openForm = ""

	if key == form.IntentCommunityGuidelines {
		reply := GuidelinesReplyText
		if router, _ := c.m.rules.Router(ctx); router != nil {
			if r, ok := router.Reply(key); ok && r != "" {
				reply = r
			}
		}
		c.startBatch(c.withFollowUp(step{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: reply}}))
		return nil
	}

	c.startBatch([]step{
		{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: formPrompt(key)}},
		{delay: c.m.opts.FollowUpDelay, payload: entity.FormPayload{Intent: key}},
	}, func() {
		c.state = StateFormOpen
		c.openForm = key
	})
	return nil
}

func (c *Conversation) submitForm(ctx context.Context, key string, data map[string]interface{}) (form.Submission, error) {
	if c.state != StateFormOpen || c.openForm != key {
		return nil, fmt.Errorf("form %q is not open: %w", key, chaterr.ErrInvalidTransition)
	}
	sub, err := form.Decode(key, data)
	if err != nil {
		return nil, err
	}

	if ac, ok := sub.(*form.AgentConnect); ok {
		return sub, c.requestAgent(ctx, ac)
	}

	c.openForm = ""
	c.startBatch(c.withFollowUp(step{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: AckText}}))
	return sub, nil
}

func (c *Conversation) requestAgent(ctx context.Context, ac *form.AgentConnect) error {
	req, err := c.m.handoff.Create(ctx, c.id, handoff.Customer{
		Name:        ac.CustomerName,
		Contact:     ac.CustomerContact,
		InquiryType: ac.InquiryType,
		Description: ac.Description,
	})
	if err != nil {
		return err
	}

	c.openForm = ""
	c.quickMenu = false
	c.followUp = false
	c.state = StateHandoffPending
	c.reveal(entity.TextPayload{Text: WaitingText})
	c.reveal(entity.AgentConnectPayload{Status: entity.AgentConnectConnecting})
	c.startWatch(req.CreatedAt)
	c.emit(KindState, nil, "")
	c.syncSeen()
	return nil
}

func (c *Conversation) startWatch(since time.Time) {
	c.stopWatch()

	var w *handoff.Watch
	own := func(fn func()) func() {
		return func() {
			if c.watch == w {
				c.watch = nil
				fn()
			}
		}
	}
	// callbacks run on the watch goroutine under its latch, so they only
	// hand the work to the worker
	w = c.m.handoff.WatchFrom(c.m.ctx, c.id, since, handoff.Callbacks{
		OnConnected: func(*entity.LiveChatRequest) {
			go c.post(0, own(c.onConnected))
		},
		OnTimeout: func() {
			go c.post(0, own(func() { c.onHandoffFailed(w.Err()) }))
		},
		OnWarning: func(int) {
			go c.post(0, func() {
				if c.watch == w {
					c.emit(KindWarning, nil, PollWarningText)
				}
			})
		},
	})
	c.watch = w
}

func (c *Conversation) onConnected() {
	if c.state != StateHandoffPending {
		return
	}
	c.touch()
	c.flush()
	c.state = StateHandoffActive
	c.reveal(entity.AgentConnectPayload{Status: entity.AgentConnectConnected})
	c.reveal(entity.TextPayload{Text: ConnectedText})
	c.emit(KindState, nil, "")
	c.syncSeen()
}

func (c *Conversation) onHandoffFailed(reason error) {
	if c.state != StateHandoffPending {
		return
	}
	c.touch()
	if reason != nil {
		c.m.logger.Info(module, "Handoff gave up", map[string]interface{}{
			"session_id": c.id,
			"error":      reason.Error(),
		})
	}
	c.reveal(entity.AgentConnectPayload{Status: entity.AgentConnectFailed})
	c.startBatch(c.withFollowUp(step{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: FailureText}}))
}

// leaveHandoff stops polling and ends the session's open request.
func (c *Conversation) leaveHandoff(ctx context.Context) {
	if c.state != StateHandoffPending && c.state != StateHandoffActive {
		return
	}
	c.stopWatch()

	req, err := c.m.handoff.Latest(ctx, c.id)
	if err == nil && req != nil && req.Status != entity.LiveChatStatusEnded {
		_, err = c.m.handoff.End(ctx, req.Id)
	}
	if err != nil && !errors.Is(err, chaterr.ErrInvalidTransition) {
		c.m.logger.Warn(module, "Could not end live chat request", map[string]interface{}{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}
}

func (c *Conversation) submitFollowUp(ctx context.Context, action FollowUpAction) error {
	switch action {
	case FollowUpMoreHelp:
		c.leaveHandoff(ctx)
		c.openForm = ""
		c.startBatch([]step{{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: MoreHelpText}}}, func() {
			c.state = StateIdle
			c.quickMenu = true
		})
	case FollowUpEnd:
		if c.state == StateClosed {
			return chaterr.ErrConversationClosed
		}
		c.leaveHandoff(ctx)
		c.openForm = ""
		c.startBatch([]step{{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: ClosingText}}}, func() {
			c.state = StateClosed
		})
	default:
		return fmt.Errorf("follow-up %q: %w", action, chaterr.ErrValidationFailed)
	}
	return nil
}

// agentMessage stores a reply typed by the connected operator.
func (c *Conversation) agentMessage(ctx context.Context, text string) (*entity.ChatMessage, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	// the operator may answer before the next poll notices the connection
	if c.state == StateHandoffPending {
		if active, err := c.m.handoff.IsActive(ctx, c.id); err == nil && active {
			c.stopWatch()
			c.onConnected()
		}
	}
	if c.state != StateHandoffActive {
		return nil, fmt.Errorf("no agent connected: %w", chaterr.ErrInvalidTransition)
	}

	msg := c.newMessage(entity.MessageRoleAssistant, entity.TextPayload{Text: text})
	if err := c.m.messages.Save(ctx, msg); err != nil {
		return nil, err
	}
	c.emit(KindMessage, msg, "")
	return msg, nil
}

// agentEnded reacts to an operator closing a connected handoff. Requests
// still waiting are reported by the watch instead.
func (c *Conversation) agentEnded() {
	if c.state != StateHandoffActive {
		return
	}
	c.startBatch([]step{{delay: c.m.opts.RevealDelay, payload: entity.TextPayload{Text: AgentEndedText}}}, func() {
		c.state = StateIdle
		c.quickMenu = true
	})
}

func (c *Conversation) pollHandoff() {
	if c.state == StateHandoffPending {
		c.m.handoff.PollNow(c.id)
	}
}
