package controller

import (
	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/serverutils"
	"support-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ILiveChatController interface {
	RegisterRoutes(r fiber.Router)
	ListWaiting(ctx *fiber.Ctx) error
	Connect(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
}

type liveChatController struct {
	service   service.ILiveChatService
	jwtSecret string
}

func NewLiveChatController(service service.ILiveChatService, jwtSecret string) ILiveChatController {
	return &liveChatController{service: service, jwtSecret: jwtSecret}
}

func (c *liveChatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/live-chat/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret)) // operators only
	h.Get("/waiting", c.ListWaiting)
	h.Post("/:id/connect", c.Connect)
	h.Post("/:id/end", c.End)
	h.Post("/:id/messages", c.SendMessage)
}

func requestID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid live chat request id")
	}
	return id, nil
}

func (c *liveChatController) ListWaiting(ctx *fiber.Ctx) error {
	res, err := c.service.ListWaiting(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get waiting requests", res))
}

func (c *liveChatController) Connect(ctx *fiber.Ctx) error {
	id, err := requestID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Connect(ctx.UserContext(), id, serverutils.AgentID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success connect", res))
}

func (c *liveChatController) End(ctx *fiber.Ctx) error {
	id, err := requestID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.End(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end live chat", res))
}

func (c *liveChatController) SendMessage(ctx *fiber.Ctx) error {
	id, err := requestID(ctx)
	if err != nil {
		return err
	}

	var req dto.AgentMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SendAgentMessage(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}
