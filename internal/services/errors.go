package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"tunebox/internal/database"
	"tunebox/internal/media"
	"tunebox/internal/utils"
)

var (
	ErrQuotaExceeded         = errors.New("daily upload quota exceeded")
	ErrArtistProfileNotFound = errors.New("no artist profile for this account")
	ErrMissingIdentifier     = errors.New("insert returned no identifier")
	ErrUsernameTaken         = errors.New("username is already taken")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidAttachment     = media.ErrInvalidAttachment
)

// Quota scopes, one per guarded table
const (
	QuotaScopeAlbum = "album"
	QuotaScopeSong  = "song"
)

// QuotaError reports a rejection by the daily upload quota trigger
type QuotaError struct {
	Scope string
	Code  string
}

func (e *QuotaError) Error() string {
	if e.Scope == QuotaScopeAlbum {
		return database.AlbumQuotaMessage
	}
	return database.SongQuotaMessage
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// TranslateQuotaError converts a quota trigger failure into a *QuotaError.
// Postgres reports the trigger code as the SQLSTATE, sqlite as the prefix of
// the abort message. Any other error is returned unchanged.
func TranslateQuotaError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if qe := quotaErrorForCode(pgErr.Code); qe != nil {
			return qe
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		code, _, _ := strings.Cut(liteErr.Error(), ":")
		if qe := quotaErrorForCode(code); qe != nil {
			return qe
		}
	}
	return err
}

func quotaErrorForCode(code string) *QuotaError {
	switch code {
	case database.AlbumQuotaCode:
		return &QuotaError{Scope: QuotaScopeAlbum, Code: code}
	case database.SongQuotaCode:
		return &QuotaError{Scope: QuotaScopeSong, Code: code}
	default:
		return nil
	}
}

// KindOf returns the machine-readable kind of err
func KindOf(err error) string {
	var qe *QuotaError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &qe):
		if qe.Scope == QuotaScopeAlbum {
			return utils.KindAlbumQuotaExceeded
		}
		return utils.KindSongQuotaExceeded
	case errors.Is(err, ErrInvalidAttachment):
		return utils.KindInvalidAttachment
	case errors.Is(err, ErrInvalidInput):
		return utils.KindInvalidInput
	case errors.Is(err, ErrArtistProfileNotFound):
		return utils.KindArtistProfileMissing
	case errors.Is(err, ErrMissingIdentifier):
		return utils.KindIntegrityFailure
	case errors.Is(err, ErrUsernameTaken):
		return utils.KindUsernameUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return utils.KindInvalidCredentials
	case errors.Is(err, ErrNotFound):
		return utils.KindNotFound
	case errors.Is(err, ErrForbidden):
		return utils.KindForbidden
	default:
		return utils.KindInternal
	}
}

// StatusOf returns the HTTP status for err
func StatusOf(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case utils.KindInvalidInput, utils.KindInvalidAttachment:
		return http.StatusBadRequest
	case utils.KindAlbumQuotaExceeded, utils.KindSongQuotaExceeded,
		utils.KindArtistProfileMissing, utils.KindForbidden:
		return http.StatusForbidden
	case utils.KindUsernameUnavailable:
		return http.StatusConflict
	case utils.KindInvalidCredentials:
		return http.StatusUnauthorized
	case utils.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the text shown to clients. Internal failures are not
// described beyond a generic message.
func MessageOf(err error) string {
	if KindOf(err) == utils.KindInternal || KindOf(err) == utils.KindIntegrityFailure {
		return "Internal server error"
	}
	return err.Error()
}
