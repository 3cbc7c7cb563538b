package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"golang.org/x/time/rate"

	"tunebox/internal/config"
	"tunebox/internal/utils"
)

// NewRateLimiter creates the general per-IP rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) fiber.Handler {
	return NewCustomRateLimiter(cfg.GeneralLimit, cfg.GeneralWindow, "Too many requests. Please try again later.")
}

// NewAuthRateLimiter creates a rate limiter for login and registration
func NewAuthRateLimiter(cfg config.RateLimitConfig) fiber.Handler {
	return NewCustomRateLimiter(cfg.AuthLimit, cfg.AuthWindow, "Too many authentication attempts. Please try again later.")
}

// NewUploadRateLimiter creates the per-user limiter of the upload endpoints
func NewUploadRateLimiter(cfg config.RateLimitConfig) fiber.Handler {
	return RateLimitByUser(cfg.UploadLimit, cfg.UploadWindow)
}

// NewCustomRateLimiter creates a per-IP rate limiter with specific parameters
func NewCustomRateLimiter(limit int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendKindError(c, fiber.StatusTooManyRequests, utils.KindRateLimited, message)
		},
	})
}

// RateLimitByUser limits requests per authenticated user, falling back to the
// client IP for anonymous callers. Buckets idle for a full window are dropped.
// A non-positive budget disables the limiter.
func RateLimitByUser(requestsPerWindow int, window time.Duration) fiber.Handler {
	if requestsPerWindow <= 0 || window <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		lastPrune = time.Now()
	)
	every := rate.Every(window / time.Duration(requestsPerWindow))

	allow := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastPrune) > window {
			for k, b := range buckets {
				if now.Sub(b.lastSeen) > window {
					delete(buckets, k)
				}
			}
			lastPrune = now
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(every, requestsPerWindow)}
			buckets[key] = b
		}
		b.lastSeen = now
		return b.limiter.Allow()
	}

	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if user, ok := GetUserFromContext(c); ok && user.ID != 0 {
			key = "user:" + strconv.FormatInt(user.ID, 10)
		}

		if !allow(key) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendKindError(c, fiber.StatusTooManyRequests, utils.KindRateLimited, "Too many uploads. Please try again later.")
		}

		return c.Next()
	}
}
