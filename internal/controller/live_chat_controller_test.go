package controller

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/pkg/chat/chaterr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "operator-secret"

type stubLiveChatService struct {
	connectedBy string
	ended       uuid.UUID
	err         error
}

func (s *stubLiveChatService) ListWaiting(context.Context) ([]*dto.LiveChatRequestResponse, error) {
	return []*dto.LiveChatRequestResponse{{Id: uuid.New(), Status: "waiting"}}, s.err
}

func (s *stubLiveChatService) Connect(_ context.Context, id uuid.UUID, agentID string) (*dto.LiveChatRequestResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.connectedBy = agentID
	return &dto.LiveChatRequestResponse{Id: id, Status: "connected", AgentId: &agentID}, nil
}

func (s *stubLiveChatService) End(_ context.Context, id uuid.UUID) (*dto.LiveChatRequestResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ended = id
	return &dto.LiveChatRequestResponse{Id: id, Status: "ended"}, nil
}

func (s *stubLiveChatService) SendAgentMessage(_ context.Context, _ uuid.UUID, req *dto.AgentMessageRequest) (*dto.ChatMessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ChatMessageResponse{Role: "assistant", Type: "text", Text: req.Text}, nil
}

func operatorToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
}

func TestLiveChatController_RequiresToken(t *testing.T) {
	app := newTestApp(NewLiveChatController(&stubLiveChatService{}, testSecret).RegisterRoutes)

	code, env := do(t, app, http.MethodGet, "/api/admin/live-chat/v1/waiting", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = do(t, app, http.MethodGet, "/api/admin/live-chat/v1/waiting", "",
		"Authorization", operatorToken(t, validClaims("agent-7"), "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, code)

	expired := jwt.MapClaims{"sub": "agent-7", "exp": time.Now().Add(-time.Minute).Unix()}
	code, _ = do(t, app, http.MethodGet, "/api/admin/live-chat/v1/waiting", "",
		"Authorization", operatorToken(t, expired, testSecret))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, app, http.MethodGet, "/api/admin/live-chat/v1/waiting", "",
		"Authorization", operatorToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret))
	assert.Equal(t, http.StatusUnauthorized, code, "token without agent id")
}

func TestLiveChatController_ConnectUsesTokenAgent(t *testing.T) {
	svc := &stubLiveChatService{}
	app := newTestApp(NewLiveChatController(svc, testSecret).RegisterRoutes)
	id := uuid.New()

	code, env := do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+id.String()+"/connect", "",
		"Authorization", operatorToken(t, validClaims("agent-7"), testSecret))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, "agent-7", svc.connectedBy)

	legacy := jwt.MapClaims{"user_id": "agent-legacy", "exp": time.Now().Add(time.Hour).Unix()}
	code, _ = do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+id.String()+"/connect", "",
		"Authorization", operatorToken(t, legacy, testSecret))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "agent-legacy", svc.connectedBy)
}

func TestLiveChatController_BadRequestID(t *testing.T) {
	app := newTestApp(NewLiveChatController(&stubLiveChatService{}, testSecret).RegisterRoutes)

	code, env := do(t, app, http.MethodPost, "/api/admin/live-chat/v1/not-a-uuid/end", "",
		"Authorization", operatorToken(t, validClaims("agent-7"), testSecret))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid live chat request id", env.Message)
}

func TestLiveChatController_EndAndMessage(t *testing.T) {
	svc := &stubLiveChatService{}
	app := newTestApp(NewLiveChatController(svc, testSecret).RegisterRoutes)
	auth := operatorToken(t, validClaims("agent-7"), testSecret)
	id := uuid.New()

	code, _ := do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+id.String()+"/messages", `{"text":"안녕하세요"}`, "Authorization", auth)
	assert.Equal(t, http.StatusOK, code)

	code, env := do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+id.String()+"/messages", `{"text":""}`, "Authorization", auth)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "text")

	code, _ = do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+id.String()+"/end", "", "Authorization", auth)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, svc.ended)
}

func TestLiveChatController_TransitionConflict(t *testing.T) {
	svc := &stubLiveChatService{err: fmt.Errorf("already ended: %w", chaterr.ErrInvalidTransition)}
	app := newTestApp(NewLiveChatController(svc, testSecret).RegisterRoutes)

	code, _ := do(t, app, http.MethodPost, "/api/admin/live-chat/v1/"+uuid.NewString()+"/connect", "",
		"Authorization", operatorToken(t, validClaims("agent-7"), testSecret))
	assert.Equal(t, http.StatusConflict, code)
}
