package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// PlaylistHandler handles playlist-related requests
type PlaylistHandler struct {
	playlists *services.PlaylistService
}

// NewPlaylistHandler creates a new playlist handler
func NewPlaylistHandler(playlists *services.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{
		playlists: playlists,
	}
}

// CreatePlaylist handles POST /playlist/new (title, userId, avatar?)
func (h *PlaylistHandler) CreatePlaylist(c *fiber.Ctx) error {
	var req struct {
		Title  string     `json:"title" form:"title"`
		UserID flexString `json:"userId" form:"userId"`
		Avatar *string    `json:"avatar" form:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.SendValidationError(c, "body", "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.SendValidationError(c, "title", "is required")
	}

	userID, err := actingUser(c, string(req.UserID))
	if err != nil {
		return respondError(c, err)
	}

	playlist, err := h.playlists.CreatePlaylist(userID, req.Title, req.Avatar)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Playlist created",
		"playlistId": playlist.ID,
	})
}

// GetPlaylist handles GET /playlist/:id
func (h *PlaylistHandler) GetPlaylist(c *fiber.Ctx) error {
	playlistID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	view, err := h.playlists.GetPlaylist(playlistID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// SetPlaylistSong handles POST /playlist/:id/song (song_id, active?). A
// missing active flag adds the song as visible.
func (h *PlaylistHandler) SetPlaylistSong(c *fiber.Ctx) error {
	playlistID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	var req struct {
		SongID flexString `json:"song_id" form:"song_id"`
		Active *bool      `json:"active" form:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.SendValidationError(c, "body", "invalid request body")
	}

	songID, err := strconv.ParseInt(string(req.SongID), 10, 64)
	if err != nil || songID <= 0 {
		return utils.SendValidationError(c, "song_id", "must be a positive integer")
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if err := h.playlists.SetPlaylistSong(actorID(c), playlistID, songID, active); err != nil {
		return respondError(c, err)
	}

	message := "Song added to playlist"
	if !active {
		message = "Song hidden from playlist"
	}
	return c.JSON(fiber.Map{"message": message})
}

// RemovePlaylistSong handles DELETE /playlist/:id/song/:song_id
func (h *PlaylistHandler) RemovePlaylistSong(c *fiber.Ctx) error {
	playlistID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}
	songID, err := paramID(c, "song_id")
	if err != nil {
		return utils.SendValidationError(c, "song_id", "must be a positive integer")
	}

	if err := h.playlists.RemovePlaylistSong(actorID(c), playlistID, songID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Song removed from playlist"})
}

// DeletePlaylist handles DELETE /playlist/:id
func (h *PlaylistHandler) DeletePlaylist(c *fiber.Ctx) error {
	playlistID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	if err := h.playlists.DeletePlaylist(actorID(c), playlistID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Playlist deleted"})
}
