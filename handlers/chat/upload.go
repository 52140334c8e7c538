package chat

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/model"
	"github.com/phantomhive/sebastian-api/services"
	"github.com/phantomhive/sebastian-api/utils/response"
)

// maxUploadSize caps image uploads at 10MB
const maxUploadSize = 10 << 20

// UploadHandler serves image uploads into a chat
type UploadHandler struct {
	chatHandler  *ChatHandler
	chatService  *services.ChatService
	mediaService *services.MediaService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(chatHandler *ChatHandler, chatService *services.ChatService, mediaService *services.MediaService) *UploadHandler {
	return &UploadHandler{
		chatHandler:  chatHandler,
		chatService:  chatService,
		mediaService: mediaService,
	}
}

// Upload handles POST /api/chat/:id/upload. Multipart form with a "file" part
// and an optional "caption" field.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	chat, errResp := h.chatHandler.loadOwnedChat(c)
	if errResp != nil {
		return errResp
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}

	if fileHeader.Size > maxUploadSize {
		return response.BadRequest(c, "File exceeds the 10MB upload limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}

	contentType := fileHeader.Header.Get("Content-Type")

	stored, err := h.mediaService.Store(c.Context(), services.UploadInput{
		Data:        data,
		ContentType: contentType,
		Filename:    fileHeader.Filename,
	})
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedMediaType) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to store upload")
	}

	caption := c.FormValue("caption")
	content := caption
	if content == "" {
		content = services.DefaultCaption
	}

	metadata, _ := json.Marshal(fiber.Map{
		"original_filename": fileHeader.Filename,
		"content_type":      contentType,
		"size":              fileHeader.Size,
	})

	result, err := h.chatService.ProcessUserMessage(c.Context(), services.InboundMessage{
		ChatID:   chat.ID,
		Content:  content,
		Kind:     model.MessageKindImage,
		MediaURL: stored.URL,
		Metadata: metadata,
		Caption:  caption,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to process message")
	}

	return response.Success(c, result)
}
