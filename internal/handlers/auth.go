package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tunebox/internal/models"
	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// AuthHandler handles login, registration and account administration
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type credentialsRequest struct {
	Username string     `json:"username" form:"username"`
	Password string     `json:"password" form:"password"`
	RoleID   flexString `json:"role_id" form:"role_id"`
}

// Login handles credential checks. Failures keep the token field, empty, so
// clients reading only the token still see the failure.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return loginFailure(c, services.ErrInvalidInput)
	}

	result, err := h.authService.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return loginFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"token":    result.Token,
		"user_id":  result.User.ID,
		"username": result.User.Username,
		"role_id":  result.User.RoleID,
	})
}

func loginFailure(c *fiber.Ctx, err error) error {
	return c.Status(services.StatusOf(err)).JSON(fiber.Map{
		"token": "",
		"error": services.MessageOf(err),
		"kind":  services.KindOf(err),
	})
}

// Register creates a listener or artist account and returns its token
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendValidationError(c, "body", "invalid request body")
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return utils.SendValidationError(c, "username", "is required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return utils.SendValidationError(c, "password", err.Error())
	}

	roleID := models.RoleListener
	if req.RoleID != "" {
		parsed, err := services.ParseRole(string(req.RoleID))
		if err != nil {
			return utils.SendValidationError(c, "role_id", "must be Listener, Artist or 1, 2")
		}
		roleID = parsed
	}

	result, err := h.authService.Register(username, req.Password, roleID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": result.Token,
	})
}

// CheckUsername reports whether a username is still free as "1" or "0"
func (h *AuthHandler) CheckUsername(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return utils.SendValidationError(c, "username", "is required")
	}

	available, err := h.authService.UsernameAvailable(username)
	if err != nil {
		return respondError(c, err)
	}

	flag := "0"
	if available {
		flag = "1"
	}
	return c.JSON(fiber.Map{
		"isUsernameAvailable": flag,
	})
}

// CreateAdmin creates another administrator. Admin only.
func (h *AuthHandler) CreateAdmin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendValidationError(c, "body", "invalid request body")
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return utils.SendValidationError(c, "username", "is required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return utils.SendValidationError(c, "password", err.Error())
	}

	result, err := h.authService.CreateAdmin(username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":   result.Token,
		"user_id": result.User.ID,
	})
}
