package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error kinds shared by every endpoint. Clients switch on kind, the error
// string stays human readable.
const (
	KindInvalidInput         = "invalid_input"
	KindInvalidAttachment    = "invalid_attachment"
	KindAlbumQuotaExceeded   = "album_quota_exceeded"
	KindSongQuotaExceeded    = "song_quota_exceeded"
	KindArtistProfileMissing = "artist_profile_missing"
	KindIntegrityFailure     = "integrity_failure"
	KindUsernameUnavailable  = "username_unavailable"
	KindInvalidCredentials   = "invalid_credentials"
	KindUnauthorized         = "unauthorized"
	KindNotFound             = "not_found"
	KindForbidden            = "forbidden"
	KindRateLimited          = "rate_limited"
	KindInternal             = "internal"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
}

// SendKindError sends an error response carrying an explicit kind
func SendKindError(c *fiber.Ctx, httpCode int, kind, message string) error {
	return c.Status(httpCode).JSON(ErrorResponse{
		Error:  message,
		Kind:   kind,
		Code:   httpCode,
		Status: http.StatusText(httpCode),
	})
}

// SendError sends a structured error response, deriving the kind from the status code
func SendError(c *fiber.Ctx, httpCode int, message string) error {
	return SendKindError(c, httpCode, KindForStatus(httpCode), message)
}

// SendValidationError sends a validation error response for one field
func SendValidationError(c *fiber.Ctx, field string, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   "Validation failed",
		Kind:    KindInvalidInput,
		Details: field + ": " + message,
		Code:    http.StatusBadRequest,
		Status:  http.StatusText(http.StatusBadRequest),
	})
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c *fiber.Ctx, resource string) error {
	return c.Status(http.StatusNotFound).JSON(ErrorResponse{
		Error:   "Resource not found",
		Kind:    KindNotFound,
		Details: resource + " does not exist",
		Code:    http.StatusNotFound,
		Status:  http.StatusText(http.StatusNotFound),
	})
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "Unauthorized",
		Kind:    KindUnauthorized,
		Details: message,
		Code:    http.StatusUnauthorized,
		Status:  http.StatusText(http.StatusUnauthorized),
	})
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusForbidden).JSON(ErrorResponse{
		Error:   "Forbidden",
		Kind:    KindForbidden,
		Details: message,
		Code:    http.StatusForbidden,
		Status:  http.StatusText(http.StatusForbidden),
	})
}

// SendInternalServerError sends an internal server error response. The
// underlying message is kept in details, the error string stays generic.
func SendInternalServerError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "Internal server error",
		Kind:    KindInternal,
		Details: message,
		Code:    http.StatusInternalServerError,
		Status:  http.StatusText(http.StatusInternalServerError),
	})
}

// KindForStatus maps a status code to the default kind for it
func KindForStatus(httpCode int) string {
	switch httpCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return KindInvalidInput
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindUsernameUnavailable
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}
