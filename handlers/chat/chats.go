package chat

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/model"
	"github.com/phantomhive/sebastian-api/services"
	"github.com/phantomhive/sebastian-api/utils/middleware"
	"github.com/phantomhive/sebastian-api/utils/response"
	"github.com/phantomhive/sebastian-api/utils/validation"
	"gorm.io/gorm"
)

// ChatHandler serves the user-facing conversation endpoints
type ChatHandler struct {
	store       database.Storage
	chatService *services.ChatService
	validator   *validation.Validator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(store database.Storage, chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		store:       store,
		chatService: chatService,
		validator:   validation.NewValidator(),
	}
}

// SendMessageRequest represents a text or sticker message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
	Kind    string `json:"kind" validate:"omitempty,oneof=text sticker"`
}

// GetChat handles GET /api/chat. Each user owns exactly one chat, created on
// first access.
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Authentication required")
	}

	chat, err := h.store.GetOrCreateChat(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load chat")
	}

	return response.Success(c, chat)
}

// GetMessages handles GET /api/chat/:id/messages
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	chat, errResp := h.loadOwnedChat(c)
	if errResp != nil {
		return errResp
	}

	messages, err := h.store.ListMessages(chat.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load messages")
	}

	return response.Success(c, fiber.Map{
		"chat_id":  chat.ID,
		"messages": messages,
	})
}

// SendMessage handles POST /api/chat/:id/message
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	chat, errResp := h.loadOwnedChat(c)
	if errResp != nil {
		return errResp
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	kind := model.MessageKindText
	if req.Kind == string(model.MessageKindSticker) {
		kind = model.MessageKindSticker
	}

	result, err := h.chatService.ProcessUserMessage(c.Context(), services.InboundMessage{
		ChatID:  chat.ID,
		Content: req.Content,
		Kind:    kind,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to process message")
	}

	return response.Success(c, result)
}

// loadOwnedChat resolves the :id parameter and enforces ownership. Non-owners
// without the admin flag get a 404, never a 403, so chat ids are not probeable.
func (h *ChatHandler) loadOwnedChat(c *fiber.Ctx) (*model.Chat, error) {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, response.BadRequest(c, "Invalid chat ID")
	}

	chat, err := h.store.GetChat(uint(chatID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Chat not found")
		}
		return nil, response.InternalServerError(c, "Failed to load chat")
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil, response.Unauthorized(c, "Authentication required")
	}

	if chat.UserID != userID && !middleware.IsAdmin(c) {
		return nil, response.NotFound(c, "Chat not found")
	}

	return chat, nil
}
