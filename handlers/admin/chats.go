package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/services"
	"github.com/phantomhive/sebastian-api/utils/response"
	"github.com/phantomhive/sebastian-api/utils/validation"
	"gorm.io/gorm"
)

// AdminHandler serves the operator monitoring and takeover endpoints
type AdminHandler struct {
	store       database.Storage
	chatService *services.ChatService
	validator   *validation.Validator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store database.Storage, chatService *services.ChatService) *AdminHandler {
	return &AdminHandler{
		store:       store,
		chatService: chatService,
		validator:   validation.NewValidator(),
	}
}

// RespondRequest is an operator-authored reply
type RespondRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// ListChats handles GET /api/admin/chats, most recently active first
func (h *AdminHandler) ListChats(c *fiber.Ctx) error {
	chats, err := h.store.ListChats()
	if err != nil {
		return response.InternalServerError(c, "Failed to list chats")
	}

	return response.Success(c, fiber.Map{
		"chats": chats,
		"count": len(chats),
	})
}

// Respond handles POST /api/admin/chat/:id/respond. The reply is delivered as
// Sebastian regardless of the chat's handoff state.
func (h *AdminHandler) Respond(c *fiber.Ctx) error {
	chatID, errResp := h.chatIDParam(c)
	if errResp != nil {
		return errResp
	}

	var req RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	msg, err := h.chatService.Respond(c.Context(), chatID, req.Content)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chat not found")
		}
		return response.InternalServerError(c, "Failed to send response")
	}

	return response.Success(c, msg)
}

// ToggleActive handles POST /api/admin/chat/:id/toggle-active and returns the
// new handoff state.
func (h *AdminHandler) ToggleActive(c *fiber.Ctx) error {
	chatID, errResp := h.chatIDParam(c)
	if errResp != nil {
		return errResp
	}

	active, err := h.chatService.ToggleHandoff(c.Context(), chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Chat not found")
		}
		return response.InternalServerError(c, "Failed to toggle handoff")
	}

	return response.Success(c, fiber.Map{
		"chat_id":      chatID,
		"admin_active": active,
	})
}

func (h *AdminHandler) chatIDParam(c *fiber.Ctx) (uint, error) {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, response.BadRequest(c, "Invalid chat ID")
	}
	return uint(chatID), nil
}
