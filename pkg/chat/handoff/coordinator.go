// Package handoff coordinates live-agent requests: creating them, operator
// transitions, and the poll loop that waits for an agent to connect.
package handoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/chaterr"

	"github.com/google/uuid"
)

const module = "Handoff"

// Customer is the contact data from the agent-connect form.
type Customer struct {
	Name        string
	Contact     string
	InquiryType string
	Description string
}

type Coordinator struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	interval   time.Duration
	timeout    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	watches map[string]*Watch
}

func NewCoordinator(uowFactory unitofwork.RepositoryFactory, interval, timeout time.Duration, logger logger.ILogger) *Coordinator {
	return &Coordinator{
		uowFactory: uowFactory,
		logger:     logger,
		interval:   interval,
		timeout:    timeout,
		now:        time.Now,
		watches:    make(map[string]*Watch),
	}
}

// Create opens a waiting request for the session.
func (c *Coordinator) Create(ctx context.Context, sessionID string, customer Customer) (*entity.LiveChatRequest, error) {
	req := &entity.LiveChatRequest{
		Id:              uuid.New(),
		ChatSessionId:   sessionID,
		CustomerName:    customer.Name,
		CustomerContact: customer.Contact,
		InquiryType:     customer.InquiryType,
		Description:     customer.Description,
		Status:          entity.LiveChatStatusWaiting,
		CreatedAt:       c.now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.LiveChatRepository().Create(ctx, req); err != nil {
		c.logger.Error(module, "Failed to create live chat request", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("create live chat request: %v: %w", err, chaterr.ErrStorageUnavailable)
	}

	c.logger.Info(module, "Live chat requested", map[string]interface{}{
		"session_id": sessionID,
		"request_id": req.Id.String(),
	})
	return req, nil
}

// Latest returns the session's most recent request, or nil.
func (c *Coordinator) Latest(ctx context.Context, sessionID string) (*entity.LiveChatRequest, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	req, err := uow.LiveChatRepository().FindOne(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionID},
		specification.Chronological{Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("latest live chat request: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return req, nil
}

// IsActive is true iff the most recent request of the session is connected.
func (c *Coordinator) IsActive(ctx context.Context, sessionID string) (bool, error) {
	req, err := c.Latest(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return req != nil && req.Status == entity.LiveChatStatusConnected, nil
}

func (c *Coordinator) ListWaiting(ctx context.Context) ([]*entity.LiveChatRequest, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	reqs, err := uow.LiveChatRepository().FindAll(ctx,
		specification.ByLiveChatStatus{Status: entity.LiveChatStatusWaiting},
		specification.Chronological{},
	)
	if err != nil {
		return nil, fmt.Errorf("list waiting: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return reqs, nil
}

func (c *Coordinator) Get(ctx context.Context, requestID uuid.UUID) (*entity.LiveChatRequest, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	req, err := uow.LiveChatRepository().FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get live chat request: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	if req == nil {
		return nil, fmt.Errorf("live chat request %s: %w", requestID, chaterr.ErrSessionNotFound)
	}
	return req, nil
}

// Connect moves a waiting request to connected on behalf of an operator.
func (c *Coordinator) Connect(ctx context.Context, requestID uuid.UUID, agentID string) (*entity.LiveChatRequest, error) {
	req, err := c.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	req.AgentId = &agentID
	req.ConnectedAt = &now
	if err := c.transition(ctx, req, entity.LiveChatStatusConnected); err != nil {
		return nil, err
	}
	c.PollNow(req.ChatSessionId)
	return req, nil
}

// End closes a waiting or connected request.
func (c *Coordinator) End(ctx context.Context, requestID uuid.UUID) (*entity.LiveChatRequest, error) {
	req, err := c.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	req.EndedAt = &now
	if err := c.transition(ctx, req, entity.LiveChatStatusEnded); err != nil {
		return nil, err
	}
	c.PollNow(req.ChatSessionId)
	return req, nil
}

// transition applies next only if the stored status still allows it, so two
// racing operators cannot both win.
func (c *Coordinator) transition(ctx context.Context, req *entity.LiveChatRequest, next entity.LiveChatStatus) error {
	from := req.Status
	if !from.CanTransition(next) {
		return fmt.Errorf("%s -> %s: %w", from, next, chaterr.ErrInvalidTransition)
	}
	req.Status = next

	uow := c.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.LiveChatRepository().Transition(ctx, req, from)
	if err != nil {
		return fmt.Errorf("transition live chat request: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	if n == 0 {
		return fmt.Errorf("%s -> %s lost a race: %w", from, next, chaterr.ErrInvalidTransition)
	}

	c.logger.Info(module, "Live chat request transitioned", map[string]interface{}{
		"request_id": req.Id.String(),
		"session_id": req.ChatSessionId,
		"from":       from,
		"to":         next,
	})
	return nil
}

// PollNow asks the session's running watch, if any, to check immediately.
func (c *Coordinator) PollNow(sessionID string) bool {
	c.mu.Lock()
	w, ok := c.watches[sessionID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case w.nudge <- struct{}{}:
	default:
	}
	return true
}

func (c *Coordinator) register(w *Watch) {
	c.mu.Lock()
	prev := c.watches[w.sessionID]
	c.watches[w.sessionID] = w
	c.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
}

func (c *Coordinator) unregister(w *Watch) {
	c.mu.Lock()
	if c.watches[w.sessionID] == w {
		delete(c.watches, w.sessionID)
	}
	c.mu.Unlock()
}
