package controller

import (
	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/serverutils"
	"realtime-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRoomController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
}

type roomController struct {
	service service.IRoomService
}

func NewRoomController(service service.IRoomService) IRoomController {
	return &roomController{service: service}
}

func (c *roomController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rooms/v1")
	h.Post("", c.Create)
	h.Get(":roomId", c.Show)
	h.Get(":roomId/messages", c.Messages)
}

func (c *roomController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateRoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create room", res))
}

// Show is the join/lookup endpoint: 404 means the caller should re-prompt
// for a room id.
func (c *roomController) Show(ctx *fiber.Ctx) error {
	roomId := ctx.Params("roomId")

	res, err := c.service.Lookup(ctx.Context(), roomId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get room", res))
}

func (c *roomController) Messages(ctx *fiber.Ctx) error {
	roomId := ctx.Params("roomId")
	limit := ctx.QueryInt("limit", 0)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.service.ListMessages(ctx.Context(), roomId, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}
