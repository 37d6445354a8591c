package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/serverutils"
	"support-chat-be/pkg/chat/chaterr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatService struct {
	lastText   string
	lastIntent string
	lastForm   map[string]interface{}
	err        error
}

func (s *stubChatService) EnsureSession(_ context.Context, req *dto.CreateSessionRequest) (*dto.SessionStateResponse, error) {
	id := req.SessionId
	if id == "" {
		id = "S-00000001"
	}
	return &dto.SessionStateResponse{SessionId: id, State: "revealing"}, s.err
}

func (s *stubChatService) SubmitUserText(_ context.Context, id string, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastText = req.Text
	return &dto.ChatMessageResponse{SessionId: id, Role: "user", Type: "text", Text: req.Text}, nil
}

func (s *stubChatService) SubmitQuickMenu(_ context.Context, id string, req *dto.QuickMenuRequest) (*dto.SessionStateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastIntent = req.Intent
	return &dto.SessionStateResponse{SessionId: id, State: "revealing"}, nil
}

func (s *stubChatService) SubmitForm(_ context.Context, id, intent string, req *dto.SubmitFormRequest) (*dto.SubmitFormResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastIntent = intent
	s.lastForm = req.Data
	return &dto.SubmitFormResponse{Intent: intent, Session: dto.SessionStateResponse{SessionId: id}}, nil
}

func (s *stubChatService) SubmitFollowUp(_ context.Context, id string, _ *dto.FollowUpRequest) (*dto.SessionStateResponse, error) {
	return &dto.SessionStateResponse{SessionId: id}, s.err
}

func (s *stubChatService) PollHandoffStatus(_ context.Context, id string) (*dto.HandoffStatusResponse, error) {
	return &dto.HandoffStatusResponse{Session: dto.SessionStateResponse{SessionId: id}}, s.err
}

func (s *stubChatService) MarkRead(context.Context, string) (*dto.MarkReadResponse, error) {
	return &dto.MarkReadResponse{SeenCount: 3}, s.err
}

func (s *stubChatService) Close(context.Context, string) error { return s.err }

func (s *stubChatService) GetHistory(context.Context, string) ([]*dto.ChatMessageResponse, error) {
	return []*dto.ChatMessageResponse{}, s.err
}

func (s *stubChatService) GetOverview(context.Context) ([]*dto.SessionOverviewResponse, error) {
	return []*dto.SessionOverviewResponse{}, s.err
}

func newTestApp(register func(r fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	register(app.Group("/api"))
	return app
}

type envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func TestChatController_CreateSession(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(NewChatController(svc).RegisterRoutes)

	code, env := do(t, app, http.MethodPost, "/api/chat/v1/sessions", "")
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "S-00000001")

	code, env = do(t, app, http.MethodPost, "/api/chat/v1/sessions", `{"sessionId":"web_42"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Contains(t, string(env.Data), "web_42")
}

func TestChatController_SendMessage(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(NewChatController(svc).RegisterRoutes)

	code, _ := do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/messages", `{"text":"버그 있어요"}`)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "버그 있어요", svc.lastText)
}

func TestChatController_ValidationErrorsNameFields(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(NewChatController(svc).RegisterRoutes)

	code, env := do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/messages", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "text")

	code, env = do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/follow-up", `{"action":"later"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "action")

	code, _ = do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/quick-menu", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, svc.lastIntent)
}

func TestChatController_SubmitFormPassesIntent(t *testing.T) {
	svc := &stubChatService{}
	app := newTestApp(NewChatController(svc).RegisterRoutes)

	code, _ := do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/forms/usage_inquiry", `{"data":{"content":"how?"}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "usage_inquiry", svc.lastIntent)
	assert.Equal(t, "how?", svc.lastForm["content"])
}

func TestChatController_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session x: %w", chaterr.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("form closed: %w", chaterr.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("gone: %w", chaterr.ErrConversationClosed), http.StatusConflict},
		{fmt.Errorf("write: %w", chaterr.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("too long: %w", chaterr.ErrValidationFailed), http.StatusBadRequest},
		{&chaterr.ValidationError{Fields: map[string]string{"content": "required"}}, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			app := newTestApp(NewChatController(&stubChatService{err: tc.err}).RegisterRoutes)
			code, env := do(t, app, http.MethodGet, "/api/chat/v1/sessions/S-1/messages", "")
			assert.Equal(t, tc.want, code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.want, env.Code)
		})
	}
}

func TestChatController_CloseAndRead(t *testing.T) {
	app := newTestApp(NewChatController(&stubChatService{}).RegisterRoutes)

	code, _ := do(t, app, http.MethodDelete, "/api/chat/v1/sessions/S-1", "")
	assert.Equal(t, http.StatusOK, code)

	code, env := do(t, app, http.MethodPost, "/api/chat/v1/sessions/S-1/read", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"seenCount":3}`, string(env.Data))
}
