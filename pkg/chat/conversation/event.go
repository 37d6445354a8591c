package conversation

import "support-chat-be/internal/entity"

type State string

const (
	StateIdle           State = "idle"
	StateAwaitingRoute  State = "awaiting-route"
	StateRevealing      State = "revealing"
	StateFormOpen       State = "form-open"
	StateHandoffPending State = "handoff-pending"
	StateHandoffActive  State = "handoff-active"
	StateClosed         State = "closed"
)

type EventKind string

const (
	KindTyping      EventKind = "typing"
	KindMessage     EventKind = "message"
	KindForm        EventKind = "form"
	KindAgentStatus EventKind = "agent_status"
	KindWarning     EventKind = "warning"
	KindState       EventKind = "state"
)

type FollowUpAction string

const (
	FollowUpMoreHelp FollowUpAction = "more_help"
	FollowUpEnd      FollowUpAction = "end"
)

// RevealEvent is what the user should see next. Message is set for
// message, form and agent_status events; Text for warnings.
type RevealEvent struct {
	SessionID     string
	Kind          EventKind
	Message       *entity.ChatMessage
	Text          string
	State         State
	ShowQuickMenu bool
	ShowFollowUp  bool
	OpenForm      string
}

// Sink receives reveal events on the session's worker goroutine.
// Deliver must not block.
type Sink interface {
	Deliver(ev RevealEvent)
}

type SinkFunc func(ev RevealEvent)

func (f SinkFunc) Deliver(ev RevealEvent) { f(ev) }

// Snapshot is the externally visible state of one conversation.
type Snapshot struct {
	SessionID     string
	State         State
	ShowQuickMenu bool
	ShowFollowUp  bool
	OpenForm      string
}

func kindFor(p entity.Payload) EventKind {
	switch p.(type) {
	case entity.FormPayload:
		return KindForm
	case entity.AgentConnectPayload:
		return KindAgentStatus
	}
	return KindMessage
}
