package controller

import (
	"context"

	"drug-agentic-be/internal/dto"
	"drug-agentic-be/internal/pkg/logger"
	"drug-agentic-be/internal/pkg/serverutils"
	"drug-agentic-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Resolve(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("/resolve", c.Resolve)
	h.Get("/history/:conversationId", c.History)

	h.Use("/stream", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("/stream", websocket.New(c.stream))
}

func (c *chatController) Resolve(ctx *fiber.Ctx) error {
	var req dto.ResolveChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.chatService.Resolve(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Query resolved", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	conversationId := ctx.Params("conversationId")
	userId := ctx.Query("user_id")
	if userId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id query parameter is required")
	}

	res, err := c.chatService.GetHistory(ctx.Context(), userId, conversationId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation history", res))
}

// stream serves one streamed resolution per websocket connection: the
// client sends a single request frame, the server answers with fragment
// frames and a final done frame. Closing the socket cancels the workflow.
func (c *chatController) stream(conn *websocket.Conn) {
	defer conn.Close()

	var req dto.StreamChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(dto.StreamChatFrame{Type: "error", Error: "invalid request frame"})
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		_ = conn.WriteJSON(dto.StreamChatFrame{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A read failure means the client went away; cancel in-flight work.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	fragments, conversationId, err := c.chatService.ResolveStream(ctx, &req)
	if err != nil {
		c.logger.Error("chat", "stream setup failed", map[string]interface{}{"error": err.Error()})
		_ = conn.WriteJSON(dto.StreamChatFrame{Type: "error", Error: "failed to start resolution"})
		return
	}

	for frag := range fragments {
		if frag.Err != nil {
			_ = conn.WriteJSON(dto.StreamChatFrame{Type: "error", Error: frag.Err.Error(), ConversationId: conversationId})
			return
		}
		if frag.Done {
			_ = conn.WriteJSON(dto.StreamChatFrame{Type: "done", ConversationId: conversationId})
			return
		}
		if err := conn.WriteJSON(dto.StreamChatFrame{Type: "fragment", Content: frag.Content}); err != nil {
			cancel()
			return
		}
	}
	_ = conn.WriteJSON(dto.StreamChatFrame{Type: "done", ConversationId: conversationId})
}
