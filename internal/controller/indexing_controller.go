package controller

import (
	"drug-agentic-be/internal/dto"
	"drug-agentic-be/internal/pkg/serverutils"
	"drug-agentic-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIndexingController interface {
	RegisterRoutes(r fiber.Router)
	Run(ctx *fiber.Ctx) error
}

type indexingController struct {
	indexingService service.IIndexingService
}

func NewIndexingController(indexingService service.IIndexingService) IIndexingController {
	return &indexingController{
		indexingService: indexingService,
	}
}

func (c *indexingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/indexing/v1")
	h.Post("/run", c.Run)
}

func (c *indexingController) Run(ctx *fiber.Ctx) error {
	var req dto.RunIndexingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.indexingService.Run(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Indexing completed", res))
}
