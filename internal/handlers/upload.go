package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"tunebox/internal/media"
	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// UploadHandler accepts multipart uploads and hands staged files to the
// upload pipelines
type UploadHandler struct {
	uploads *services.UploadService
	staging *media.StagingStore
	logger  *zerolog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *services.UploadService, staging *media.StagingStore, logger *zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		staging: staging,
		logger:  logger,
	}
}

// InsertAlbum handles POST /album-insert (user_id, albumName, img)
func (h *UploadHandler) InsertAlbum(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("albumName"))
	rawUser := c.FormValue("user_id")
	cover, err := c.FormFile("img")
	if err != nil || cover == nil || rawUser == "" || name == "" {
		return utils.SendValidationError(c, "form", "img, user_id and albumName are required")
	}

	userID, err := actingUser(c, rawUser)
	if err != nil {
		return respondError(c, err)
	}

	staged, err := h.staging.Stage(cover)
	if err != nil {
		return respondError(c, err)
	}

	albumID, err := h.uploads.InsertAlbum(c.UserContext(), services.AlbumUpload{
		UserID: userID,
		Name:   name,
		Cover:  staged,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"album_id": albumID,
	})
}

// InsertSong handles POST /song-insert (user_id, album_id, song, song_name?)
func (h *UploadHandler) InsertSong(c *fiber.Ctx) error {
	rawUser := c.FormValue("user_id")
	rawAlbum := c.FormValue("album_id")
	file, err := c.FormFile("song")
	if err != nil || file == nil || rawUser == "" || rawAlbum == "" {
		return utils.SendValidationError(c, "form", "song, user_id and album_id are required")
	}

	albumID, err := strconv.ParseInt(rawAlbum, 10, 64)
	if err != nil || albumID <= 0 {
		return utils.SendValidationError(c, "album_id", "must be a positive integer")
	}
	userID, err := actingUser(c, rawUser)
	if err != nil {
		return respondError(c, err)
	}

	staged, err := h.staging.Stage(file)
	if err != nil {
		return respondError(c, err)
	}

	songID, err := h.uploads.InsertSong(c.UserContext(), services.SongUpload{
		UserID:  userID,
		AlbumID: albumID,
		Name:    c.FormValue("song_name"),
		File:    staged,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Song uploaded successfully",
		"song_id": songID,
	})
}

// InsertSongBatch handles POST /album/:album_id/songs with several "song"
// parts. Each song is stored on its own; the response lists every outcome.
func (h *UploadHandler) InsertSongBatch(c *fiber.Ctx) error {
	albumID, err := paramID(c, "album_id")
	if err != nil {
		return utils.SendValidationError(c, "album_id", "must be a positive integer")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendValidationError(c, "form", "multipart form expected")
	}
	files := form.File["song"]
	rawUser := ""
	if values := form.Value["user_id"]; len(values) > 0 {
		rawUser = values[0]
	}
	if len(files) == 0 || rawUser == "" {
		return utils.SendValidationError(c, "form", "user_id and at least one song are required")
	}

	userID, err := actingUser(c, rawUser)
	if err != nil {
		return respondError(c, err)
	}

	staged, err := h.stageAll(files)
	if err != nil {
		return respondError(c, err)
	}

	result := h.uploads.InsertSongBatch(c.UserContext(), userID, albumID, staged)
	return c.JSON(result)
}

// stageAll stages every part or none of them
func (h *UploadHandler) stageAll(files []*multipart.FileHeader) ([]*media.StagedFile, error) {
	staged := make([]*media.StagedFile, 0, len(files))
	for _, fh := range files {
		sf, err := h.staging.Stage(fh)
		if err != nil {
			for _, done := range staged {
				if rmErr := done.Remove(); rmErr != nil && h.logger != nil {
					h.logger.Warn().Err(rmErr).Str("path", done.Path).Msg("Failed to remove staged file")
				}
			}
			return nil, err
		}
		staged = append(staged, sf)
	}
	return staged, nil
}
