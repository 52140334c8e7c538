package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/phantomhive/sebastian-api/database"
	"github.com/phantomhive/sebastian-api/model"
	"github.com/phantomhive/sebastian-api/utils/auth"
	"github.com/phantomhive/sebastian-api/utils/response"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	store      database.Storage
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, store database.Storage) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		store:      store,
	}
}

// authenticate validates the bearer token and loads the user row.
// Returns a response error when authentication fails, nil otherwise.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*model.User, *auth.Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, response.Unauthorized(c, "Missing authorization token")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, response.Unauthorized(c, "Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, nil, response.Unauthorized(c, "Token has expired")
		}
		return nil, nil, response.Unauthorized(c, "Invalid token")
	}

	user, err := m.store.GetUserByID(claims.UserID)
	if err != nil {
		return nil, nil, response.Unauthorized(c, "User not found")
	}

	return user, claims, nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, errResp := m.authenticate(c)
		if errResp != nil {
			return errResp
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("is_admin", user.IsAdmin)
		c.Locals("claims", claims)
		c.Locals("user", user)

		return c.Next()
	}
}

// RequireAdmin is middleware that requires a valid JWT token with the admin flag
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, errResp := m.authenticate(c)
		if errResp != nil {
			return errResp
		}

		if !claims.IsAdmin || !user.IsAdmin {
			return response.Forbidden(c, "Admin access required")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("is_admin", true)
		c.Locals("claims", claims)
		c.Locals("user", user)

		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// IsAdmin reports whether the authenticated caller carries the admin flag
func IsAdmin(c *fiber.Ctx) bool {
	isAdmin, ok := c.Locals("is_admin").(bool)
	return ok && isAdmin
}
