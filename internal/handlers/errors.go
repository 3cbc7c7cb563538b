package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"tunebox/internal/logging"
	"tunebox/internal/middleware"
	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// respondError renders a service error in the shared envelope
func respondError(c *fiber.Ctx, err error) error {
	status := services.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		logging.WithContext(c.UserContext()).Error().Err(err).
			Str("route", c.Route().Path).
			Msg("Request failed")
	}
	return utils.SendKindError(c, status, services.KindOf(err), services.MessageOf(err))
}

// ErrorHandler renders errors that escaped a handler, including fiber's own
// (unknown route, body too large), in the shared envelope
func ErrorHandler(logger *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.SendError(c, fe.Code, fe.Message)
		}
		log := logger
		if log == nil {
			log = logging.WithContext(c.UserContext())
		}
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		return utils.SendInternalServerError(c, "Internal server error")
	}
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// actingUser resolves the account a request acts for. raw is the id named in
// the request; when a bearer token was sent it must name the same account.
func actingUser(c *fiber.Ctx, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.ErrInvalidInput
	}
	if user, ok := middleware.GetUserFromContext(c); ok && user.ID != id {
		return 0, services.ErrForbidden
	}
	return id, nil
}

// actorID is the authenticated caller, or 0 for anonymous requests
func actorID(c *fiber.Ctx) int64 {
	if user, ok := middleware.GetUserFromContext(c); ok {
		return user.ID
	}
	return 0
}

// flexString accepts a JSON number or string, the client sends ids and
// roles both ways
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexString(strings.TrimSpace(s))
	return nil
}
