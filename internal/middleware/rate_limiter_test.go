package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunebox/internal/config"
	"tunebox/internal/models"
)

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(NewRateLimiter(config.RateLimitConfig{GeneralLimit: 3, GeneralWindow: time.Minute}))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestAuthRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(NewAuthRateLimiter(config.RateLimitConfig{AuthLimit: 1, AuthWindow: time.Minute}))
	app.Post("/login", func(c *fiber.Ctx) error {
		return c.SendString("Login")
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitByUser(t *testing.T) {
	m, authService := newTestAuth(t)

	app := fiber.New()
	app.Post("/upload", m.OptionalAuth(), RateLimitByUser(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendString("stored")
	})

	send := func(token string) int {
		req := httptest.NewRequest("POST", "/upload", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	first := tokenFor(t, authService, 1, models.RoleArtist)
	second := tokenFor(t, authService, 2, models.RoleArtist)

	assert.Equal(t, fiber.StatusOK, send(first))
	assert.Equal(t, fiber.StatusOK, send(first))
	assert.Equal(t, fiber.StatusTooManyRequests, send(first))

	// buckets are per user
	assert.Equal(t, fiber.StatusOK, send(second))

	// anonymous callers share the IP bucket
	assert.Equal(t, fiber.StatusOK, send(""))
	assert.Equal(t, fiber.StatusOK, send(""))
	assert.Equal(t, fiber.StatusTooManyRequests, send(""))
}
