// Package session keeps the chat session rows and their read-receipt
// bookkeeping.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/message"

	"github.com/google/uuid"
)

const module = "SessionRegistry"

const idLength = 8

var idFormat = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is an acceptable session identifier.
func ValidID(id string) bool {
	return idFormat.MatchString(id)
}

// NewID returns "S-" followed by 8 lowercase base36 characters.
func NewID() string {
	u := uuid.New()
	s := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(s) < idLength {
		s = strings.Repeat("0", idLength-len(s)) + s
	}
	return "S-" + s[len(s)-idLength:]
}

type Registry struct {
	uowFactory unitofwork.RepositoryFactory
	messages   *message.Store
	logger     logger.ILogger
	now        func() time.Time
}

func NewRegistry(uowFactory unitofwork.RepositoryFactory, messages *message.Store, logger logger.ILogger) *Registry {
	return &Registry{
		uowFactory: uowFactory,
		messages:   messages,
		logger:     logger,
		now:        time.Now,
	}
}

// Ensure creates the session row if needed and returns its id. An empty id
// gets a freshly generated one. Existing rows keep their created_at.
func (r *Registry) Ensure(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = NewID()
	} else if !ValidID(id) {
		return "", fmt.Errorf("session id %q: %w", id, chaterr.ErrValidationFailed)
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	err := uow.ChatSessionRepository().CreateIfNotExists(ctx, &entity.ChatSession{
		Id:        id,
		CreatedAt: r.now(),
	})
	if err != nil {
		r.logger.Error(module, "Failed to ensure session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("ensure session: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return id, nil
}

// MarkSeen records how many assistant messages the user has observed.
func (r *Registry) MarkSeen(ctx context.Context, id string, count int64) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().UpdateSeenCount(ctx, id, int(count)); err != nil {
		return fmt.Errorf("mark seen: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, id string) (*entity.ChatSession, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	s, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("get session: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	if s == nil {
		return nil, fmt.Errorf("session %s: %w", id, chaterr.ErrSessionNotFound)
	}
	return s, nil
}

func (r *Registry) GetCreatedAt(ctx context.Context, id string) (time.Time, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return s.CreatedAt, nil
}

// SyncSeen marks every assistant message read and then records the
// assistant count as seen. The two writes are not atomic: if the second one
// fails the seen count stays stale until the next successful sync.
func (r *Registry) SyncSeen(ctx context.Context, id string) (int64, error) {
	if _, err := r.messages.MarkAllAssistantRead(ctx, id, r.now()); err != nil {
		return 0, err
	}

	count, err := r.messages.CountAssistant(ctx, id)
	if err == nil {
		err = r.MarkSeen(ctx, id, count)
	}
	if err != nil {
		r.logger.Warn(module, "Seen count left stale after read-mark", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		return 0, err
	}
	return count, nil
}

// Overview lists every session with its latest message and unread count,
// most recently active first.
func (r *Registry) Overview(ctx context.Context) ([]*entity.ChatSessionOverview, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %v: %w", err, chaterr.ErrStorageUnavailable)
	}

	result := make([]*entity.ChatSessionOverview, 0, len(sessions))
	for _, s := range sessions {
		ov := &entity.ChatSessionOverview{
			Id:            s.Id,
			CreatedAt:     s.CreatedAt,
			LastMessageAt: s.CreatedAt,
		}

		last, err := r.messages.Last(ctx, s.Id)
		if err != nil {
			return nil, err
		}
		if last != nil {
			ov.LastMessageAt = last.CreatedAt
			if text := entity.PayloadText(last.Payload); text != "" {
				ov.LastMessageText = &text
			}
		}

		ov.UnreadAssistantCount, err = r.messages.CountUnread(ctx, s.Id)
		if err != nil {
			return nil, err
		}
		result = append(result, ov)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, nil
}
