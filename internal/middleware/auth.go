package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"tunebox/internal/logging"
	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// AuthMiddleware provides authentication for API endpoints
type AuthMiddleware struct {
	authService *services.AuthService
	jwtSecret   []byte
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *services.AuthService, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
	}
}

// JWTProtected requires a valid bearer token and stores its claims in locals
func (m *AuthMiddleware) JWTProtected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    m.jwtSecret,
		SigningMethod: "HS256",
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return utils.SendUnauthorizedError(c, "Authentication required")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return utils.SendUnauthorizedError(c, "Invalid token claims")
			}

			userID, _ := claims["user_id"].(float64)
			roleID, _ := claims["role_id"].(float64)
			username, _ := claims["username"].(string)
			if userID <= 0 {
				return utils.SendUnauthorizedError(c, "Invalid token claims")
			}

			setUser(c, &services.AuthUser{ID: int64(userID), Username: username, RoleID: int(roleID)})
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return utils.SendUnauthorizedError(c, "Authentication required")
		},
	})
}

// OptionalAuth attaches the caller when a bearer token is sent and lets
// anonymous requests through. A token that is present but invalid is rejected.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return utils.SendUnauthorizedError(c, "Unsupported authorization scheme")
		}

		user, err := m.authService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return utils.SendUnauthorizedError(c, "Invalid token")
		}

		setUser(c, user)
		return c.Next()
	}
}

// RequireRole restricts access to callers holding one of roles. It must run
// after JWTProtected.
func (m *AuthMiddleware) RequireRole(roles ...int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUserFromContext(c)
		if !ok {
			return utils.SendUnauthorizedError(c, "Authentication required")
		}
		for _, role := range roles {
			if user.RoleID == role {
				return c.Next()
			}
		}
		return utils.SendForbiddenError(c, "Insufficient role")
	}
}

func setUser(c *fiber.Ctx, user *services.AuthUser) {
	c.Locals("user_id", user.ID)
	c.Locals("username", user.Username)
	c.Locals("role_id", user.RoleID)
	c.SetUserContext(logging.ContextWithUserID(c.UserContext(), user.ID))
}

// GetUserFromContext retrieves user information from the request context
func GetUserFromContext(c *fiber.Ctx) (*services.AuthUser, bool) {
	userID, ok1 := c.Locals("user_id").(int64)
	username, ok2 := c.Locals("username").(string)
	roleID, ok3 := c.Locals("role_id").(int)

	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}

	return &services.AuthUser{
		ID:       userID,
		Username: username,
		RoleID:   roleID,
	}, true
}
