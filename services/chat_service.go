package services

import (
	"context"
	"fmt"
	"time"

	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/model"
	"gorm.io/datatypes"
)

// ResponseGenerator produces in-character text for an inbound message.
// Implementations must absorb upstream failures and always return usable text.
type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) string
}

// ChatService routes inbound user messages: every message is persisted, and the
// chat's admin-active flag decides whether Sebastian answers automatically or a
// human operator has taken over.
type ChatService struct {
	store   database.Storage
	persona ResponseGenerator
}

// NewChatService creates a new chat service
func NewChatService(store database.Storage, persona ResponseGenerator) *ChatService {
	return &ChatService{
		store:   store,
		persona: persona,
	}
}

// InboundMessage is one user message entering a chat
type InboundMessage struct {
	ChatID   uint
	Content  string
	Kind     model.MessageKind
	MediaURL string
	Metadata datatypes.JSON
	Caption  string // original caption for image messages, may be empty
}

// ProcessResult reports what was persisted for one inbound message
type ProcessResult struct {
	UserMessage *model.Message `json:"user_message"`
	Reply       *model.Message `json:"reply,omitempty"` // nil while an operator is active
}

// ProcessUserMessage persists the inbound message unconditionally, then generates
// and persists Sebastian's reply unless the chat is in human-operated mode.
func (s *ChatService) ProcessUserMessage(ctx context.Context, in InboundMessage) (*ProcessResult, error) {
	chat, err := s.store.GetChat(in.ChatID)
	if err != nil {
		return nil, err
	}

	// History is read before the append so it contains only prior messages.
	// Paging from the newest end keeps the window correct for chats that have
	// grown past the full-retrieval cap.
	history, err := s.store.GetRecentMessages(in.ChatID, historyWindow)
	if err != nil {
		return nil, err
	}

	kind := in.Kind
	if kind == "" {
		kind = model.MessageKindText
	}

	userMsg := &model.Message{
		ChatID:    in.ChatID,
		Sender:    model.SenderUser,
		Content:   in.Content,
		Kind:      kind,
		MediaURL:  in.MediaURL,
		Metadata:  in.Metadata,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(userMsg); err != nil {
		return nil, err
	}

	result := &ProcessResult{UserMessage: userMsg}

	// Human-operated mode: the operator replies through the admin endpoint.
	if chat.AdminActive {
		return result, nil
	}

	replyText := s.persona.Generate(ctx, GenerateRequest{
		Content:  s.promptFor(in),
		History:  history,
		MediaURL: in.MediaURL,
	})

	reply := &model.Message{
		ChatID:    in.ChatID,
		Sender:    model.SenderSebastian,
		Content:   replyText,
		Kind:      model.MessageKindText,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(reply); err != nil {
		return nil, err
	}

	result.Reply = reply
	return result, nil
}

// promptFor renders the generator input for an inbound message. Image messages
// are described rather than passed through, so the persona comments on the image.
func (s *ChatService) promptFor(in InboundMessage) string {
	if in.Kind != model.MessageKindImage {
		return in.Content
	}
	prompt := "The user has shared an image"
	if in.Caption != "" {
		prompt += fmt.Sprintf(" with the caption: '%s'", in.Caption)
	}
	return prompt
}

// Respond appends an operator-authored reply. The message is presented as
// Sebastian; IsAdminResponse records the real author. Available in both handoff
// states and never changes them.
func (s *ChatService) Respond(ctx context.Context, chatID uint, content string) (*model.Message, error) {
	if _, err := s.store.GetChat(chatID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ChatID:          chatID,
		Sender:          model.SenderSebastian,
		Content:         content,
		Kind:            model.MessageKindText,
		Timestamp:       time.Now().UTC(),
		IsAdminResponse: true,
	}
	if err := s.store.AppendMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ToggleHandoff flips the chat between automatic and human-operated mode and
// returns the new state. Toggling twice restores the original state.
func (s *ChatService) ToggleHandoff(ctx context.Context, chatID uint) (bool, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return false, err
	}

	newState := !chat.AdminActive
	if err := s.store.SetHandoffActive(chatID, newState); err != nil {
		return false, err
	}
	return newState, nil
}
