package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/model"
	"github.com/phantomhive/sebastian-api/services"
	authutil "github.com/phantomhive/sebastian-api/utils/auth"
	"github.com/phantomhive/sebastian-api/utils/middleware"
	"gorm.io/gorm"
)

// memStore is an in-memory Storage implementation for handler tests
type memStore struct {
	users    map[uint]*model.User
	chats    map[uint]*model.Chat
	messages []model.Message
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uint]*model.User),
		chats:  make(map[uint]*model.Chat),
		nextID: 1,
	}
}

func (m *memStore) Init() error        { return nil }
func (m *memStore) Close() error       { return nil }
func (m *memStore) HealthCheck() error { return nil }

func (m *memStore) CreateUser(user *model.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByUsername(username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) GetUserByID(id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) GetChat(chatID uint) (*model.Chat, error) {
	if c, ok := m.chats[chatID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) GetOrCreateChat(userID uint) (*model.Chat, error) {
	for _, c := range m.chats {
		if c.UserID == userID {
			copied := *c
			return &copied, nil
		}
	}
	user, err := m.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	chat := &model.Chat{ID: m.nextID, UserID: userID, Username: user.Username}
	m.nextID++
	m.chats[chat.ID] = chat
	copied := *chat
	return &copied, nil
}

func (m *memStore) ListChats() ([]model.Chat, error) {
	chats := make([]model.Chat, 0, len(m.chats))
	for _, c := range m.chats {
		chats = append(chats, *c)
	}
	return chats, nil
}

func (m *memStore) SetHandoffActive(chatID uint, active bool) error {
	c, ok := m.chats[chatID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.AdminActive = active
	return nil
}

func (m *memStore) ListMessages(chatID uint) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) GetRecentMessages(chatID uint, n int) ([]model.Message, error) {
	all, _ := m.ListMessages(chatID)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (m *memStore) AppendMessage(msg *model.Message) error {
	msg.ID = m.nextID
	m.nextID++
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) HasMessageWithMediaURL(url string) (bool, error) {
	for _, msg := range m.messages {
		if msg.MediaURL == url {
			return true, nil
		}
	}
	return false, nil
}

// staticGenerator always answers with fixed text
type staticGenerator struct {
	reply string
}

func (g *staticGenerator) Generate(ctx context.Context, req services.GenerateRequest) string {
	return g.reply
}

type testEnv struct {
	app        *fiber.App
	store      *memStore
	jwtManager *authutil.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	jwtManager := authutil.NewJWTManager(authutil.JWTConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "sebastian-api-test",
	})
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, store)

	chatService := services.NewChatService(store, &staticGenerator{reply: "Yes, my lord."})
	mediaService, err := services.NewMediaService(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewMediaService failed: %v", err)
	}

	chatHandler := NewChatHandler(store, chatService)
	uploadHandler := NewUploadHandler(chatHandler, chatService, mediaService)

	app := fiber.New()
	chatGroup := app.Group("/api/chat", authMiddleware.Required())
	chatGroup.Get("/", chatHandler.GetChat)
	chatGroup.Get("/:id/messages", chatHandler.GetMessages)
	chatGroup.Post("/:id/message", chatHandler.SendMessage)
	chatGroup.Post("/:id/upload", uploadHandler.Upload)

	return &testEnv{app: app, store: store, jwtManager: jwtManager}
}

// newUser creates a user with a chat and returns the user and a bearer token
func (e *testEnv) newUser(t *testing.T, username string) (*model.User, string) {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "irrelevant"}
	if err := e.store.CreateUser(user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, _, err := e.jwtManager.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

type resultEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		UserMessage *model.Message `json:"user_message"`
		Reply       *model.Message `json:"reply"`
	} `json:"data"`
}

func TestGetChatCreatesOnFirstAccess(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")

	resp := env.do(t, http.MethodGet, "/api/chat", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var env1 struct {
		Data model.Chat `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env1.Data.UserID != user.ID {
		t.Errorf("chat user_id = %d, want %d", env1.Data.UserID, user.ID)
	}

	// A second call returns the same chat
	resp = env.do(t, http.MethodGet, "/api/chat", token, nil)
	var env2 struct {
		Data model.Chat `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env2); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env2.Data.ID != env1.Data.ID {
		t.Error("repeated access must return the same chat")
	}
}

func TestGetChatRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/chat", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSendMessageProducesReply(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/message", chat.ID), token, fiber.Map{
		"content": "Prepare tea",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var env1 resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env1.Data.UserMessage == nil || env1.Data.UserMessage.Content != "Prepare tea" {
		t.Error("response is missing the persisted user message")
	}
	if env1.Data.Reply == nil || env1.Data.Reply.Content != "Yes, my lord." {
		t.Error("response is missing the automatic reply")
	}
}

func TestSendStickerMessage(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/message", chat.ID), token, fiber.Map{
		"content": ":sebastian_bow:",
		"kind":    "sticker",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var env1 resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env1.Data.UserMessage == nil || env1.Data.UserMessage.Kind != model.MessageKindSticker {
		t.Error("sticker kind was not persisted")
	}
}

func TestSendMessageSuppressedDuringHandoff(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)
	env.store.SetHandoffActive(chat.ID, true)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/chat/%d/message", chat.ID), token, fiber.Map{
		"content": "Hello?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var env1 resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env1.Data.Reply != nil {
		t.Error("no automatic reply may be produced while an operator is active")
	}
}

func TestGetMessagesHidesForeignChats(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(owner.ID)
	_, intruderToken := env.newUser(t, "grell")

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/chat/%d/messages", chat.ID), intruderToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a foreign chat", resp.StatusCode)
	}
}

func TestGetMessagesUnknownChat(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newUser(t, "ciel")

	resp := env.do(t, http.MethodGet, "/api/chat/999/messages", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUploadStoresImageAndReplies(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="garden.png"`},
		"Content-Type":        {"image/png"},
	})
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	part.Write([]byte("fake png bytes"))
	writer.WriteField("caption", "my garden")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/chat/%d/upload", chat.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var env1 resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	msg := env1.Data.UserMessage
	if msg == nil {
		t.Fatal("response is missing the persisted user message")
	}
	if msg.Kind != model.MessageKindImage {
		t.Errorf("message kind = %q, want image", msg.Kind)
	}
	if msg.Content != "my garden" {
		t.Errorf("message content = %q, want the caption", msg.Content)
	}
	if msg.MediaURL == "" {
		t.Error("message is missing the media URL")
	}
	if env1.Data.Reply == nil {
		t.Error("response is missing the automatic reply")
	}
}

func TestUploadWithoutCaptionUsesDefault(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="garden.png"`},
		"Content-Type":        {"image/png"},
	})
	part.Write([]byte("fake png bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/chat/%d/upload", chat.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var env1 resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env1); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env1.Data.UserMessage == nil || env1.Data.UserMessage.Content != services.DefaultCaption {
		t.Error("captionless upload must use the default caption")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "ciel")
	chat, _ := env.store.GetOrCreateChat(user.ID)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="contract.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	part.Write([]byte("%PDF-1.4"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/chat/%d/upload", chat.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
