package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/model"
	authutil "github.com/phantomhive/sebastian-api/utils/auth"
	"github.com/phantomhive/sebastian-api/utils/middleware"
	"github.com/phantomhive/sebastian-api/utils/response"
	"github.com/phantomhive/sebastian-api/utils/validation"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	store                database.Storage
	jwtManager           *authutil.JWTManager
	validator            *validation.Validator
	bruteForceProtection *middleware.BruteForceProtection
	adminUsername        string
	adminPassword        string
}

// NewAuthHandler creates a new auth handler. adminPassword may be empty, which
// disables the admin login endpoint entirely.
func NewAuthHandler(store database.Storage, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection, adminUsername, adminPassword string) *AuthHandler {
	return &AuthHandler{
		store:                store,
		jwtManager:           jwtManager,
		validator:            validation.NewValidator(),
		bruteForceProtection: bruteForceProtection,
		adminUsername:        adminUsername,
		adminPassword:        adminPassword,
	}
}

// CredentialsRequest represents a register or login request
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse represents a successful authentication response
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// tokenResponse issues a bearer token for the user and assembles the response
func (h *AuthHandler) tokenResponse(user *model.User, isAdmin bool) (*TokenResponse, error) {
	token, _, err := h.jwtManager.GenerateToken(user.ID, user.Username, isAdmin)
	if err != nil {
		return nil, err
	}
	expiresAt, err := h.jwtManager.GetTokenExpiry(token)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userResponse(user),
	}, nil
}

func userResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	// The admin account is created lazily through admin login only
	if req.Username == h.adminUsername {
		return response.BadRequest(c, "Username is reserved")
	}

	if _, err := h.store.GetUserByUsername(req.Username); err == nil {
		return response.Conflict(c, "Username already exists")
	}

	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, authutil.ErrPasswordTooShort) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to process password")
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
	}
	if err := h.store.CreateUser(user); err != nil {
		return response.InternalServerError(c, "Failed to create user")
	}

	tokenResp, err := h.tokenResponse(user, user.IsAdmin)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Created(c, tokenResp)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "Username and password are required")
	}

	ip := c.IP()

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		// Record failed attempt even if user not found
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid credentials")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid credentials")
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	tokenResp, err := h.tokenResponse(user, user.IsAdmin)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, tokenResp)
}

// AdminLogin handles POST /api/admin/login. It succeeds only for the configured
// admin credential pair and lazily creates the admin user record on first use,
// so every later login reuses the same user id.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ip := c.IP()

	if h.adminPassword == "" || req.Username != h.adminUsername || req.Password != h.adminPassword {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid admin credentials")
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	user, err := h.store.GetUserByUsername(h.adminUsername)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return response.InternalServerError(c, "Failed to load admin user")
		}

		hashedPassword, hashErr := authutil.HashPassword(h.adminPassword)
		if hashErr != nil {
			return response.InternalServerError(c, "Failed to process password")
		}

		user = &model.User{
			Username:     h.adminUsername,
			PasswordHash: hashedPassword,
			IsAdmin:      true,
		}
		if createErr := h.store.CreateUser(user); createErr != nil {
			// A concurrent first login may have created the record
			existing, fetchErr := h.store.GetUserByUsername(h.adminUsername)
			if fetchErr != nil {
				return response.InternalServerError(c, "Failed to create admin user")
			}
			user = existing
		}
	}

	tokenResp, err := h.tokenResponse(user, true)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, tokenResp)
}
