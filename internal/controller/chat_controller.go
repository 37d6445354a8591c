package controller

import (
	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/serverutils"
	"support-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	QuickMenu(ctx *fiber.Ctx) error
	SubmitForm(ctx *fiber.Ctx) error
	FollowUp(ctx *fiber.Ctx) error
	HandoffStatus(ctx *fiber.Ctx) error
	MarkRead(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id/messages", c.GetHistory)
	h.Post("/sessions/:id/messages", c.SendMessage)
	h.Post("/sessions/:id/quick-menu", c.QuickMenu)
	h.Post("/sessions/:id/forms/:intent", c.SubmitForm)
	h.Post("/sessions/:id/follow-up", c.FollowUp)
	h.Get("/sessions/:id/handoff", c.HandoffStatus)
	h.Post("/sessions/:id/read", c.MarkRead)
	h.Delete("/sessions/:id", c.CloseSession)
}

// parseBody decodes and validates a JSON request body.
func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	// an empty body starts a fresh session
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
	}

	res, err := c.service.EnsureSession(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success open session", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	res, err := c.service.GetOverview(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.service.GetHistory(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitUserText(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Message accepted", res))
}

func (c *chatController) QuickMenu(ctx *fiber.Ctx) error {
	var req dto.QuickMenuRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitQuickMenu(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Quick menu accepted", res))
}

func (c *chatController) SubmitForm(ctx *fiber.Ctx) error {
	var req dto.SubmitFormRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitForm(ctx.UserContext(), ctx.Params("id"), ctx.Params("intent"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit form", res))
}

func (c *chatController) FollowUp(ctx *fiber.Ctx) error {
	var req dto.FollowUpRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitFollowUp(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success follow up", res))
}

func (c *chatController) HandoffStatus(ctx *fiber.Ctx) error {
	res, err := c.service.PollHandoffStatus(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get handoff status", res))
}

func (c *chatController) MarkRead(ctx *fiber.Ctx) error {
	res, err := c.service.MarkRead(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success mark read", res))
}

func (c *chatController) CloseSession(ctx *fiber.Ctx) error {
	if err := c.service.Close(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success close session", nil))
}
