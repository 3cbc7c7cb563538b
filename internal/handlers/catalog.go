package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"tunebox/internal/middleware"
	"tunebox/internal/pagination"
	"tunebox/internal/services"
	"tunebox/internal/utils"
)

// CatalogHandler serves browsing, media reads and listener activity
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
	}
}

// SearchSongs handles GET /songs/search?keyword=
func (h *CatalogHandler) SearchSongs(c *fiber.Ctx) error {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		return utils.SendValidationError(c, "keyword", "is required")
	}

	rows, err := h.catalog.SearchSongs(keyword)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// TopArtists handles GET /artists
func (h *CatalogHandler) TopArtists(c *fiber.Ctx) error {
	rows, err := h.catalog.TopArtists()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// TopAlbums handles GET /albums
func (h *CatalogHandler) TopAlbums(c *fiber.Ctx) error {
	rows, err := h.catalog.TopAlbums()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// TopAlbumsByPlays handles GET /album/playcount/3
func (h *CatalogHandler) TopAlbumsByPlays(c *fiber.Ctx) error {
	rows, err := h.catalog.TopAlbumsByPlays()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// AlbumCover handles GET /album/:album_id/IMG
func (h *CatalogHandler) AlbumCover(c *fiber.Ctx) error {
	albumID, err := paramID(c, "album_id")
	if err != nil {
		return utils.SendValidationError(c, "album_id", "must be a positive integer")
	}

	cover, err := h.catalog.AlbumCover(albumID)
	if err != nil {
		return respondError(c, err)
	}
	return sendImage(c, cover)
}

// SongAlbumCover handles GET /songs/:id/album-cover
func (h *CatalogHandler) SongAlbumCover(c *fiber.Ctx) error {
	songID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	cover, err := h.catalog.SongAlbumCover(songID)
	if err != nil {
		return respondError(c, err)
	}
	return sendImage(c, cover)
}

func sendImage(c *fiber.Ctx, data []byte) error {
	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(data)
}

// StreamSong handles GET /songs/:id/stream
func (h *CatalogHandler) StreamSong(c *fiber.Ctx) error {
	songID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	file, err := h.catalog.StreamSong(songID)
	if err != nil {
		return respondError(c, err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(file.SongFile)
}

// RecordPlay handles POST /songs/:id/play for the authenticated listener
func (h *CatalogHandler) RecordPlay(c *fiber.Ctx) error {
	songID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	if err := h.catalog.RecordPlay(actorID(c), songID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Play recorded"})
}

// LikeSong handles POST /songs/:id/like
func (h *CatalogHandler) LikeSong(c *fiber.Ctx) error {
	songID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	if err := h.catalog.LikeSong(actorID(c), songID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Song liked"})
}

// UnlikeSong handles DELETE /songs/:id/like
func (h *CatalogHandler) UnlikeSong(c *fiber.Ctx) error {
	songID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	if err := h.catalog.UnlikeSong(actorID(c), songID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Like removed"})
}

// ArtistSummary handles GET /artist/:id where id is the artist's account id
func (h *CatalogHandler) ArtistSummary(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	summary, err := h.catalog.ArtistSummary(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// LatestAlbum handles GET /artist/:id/albumlatest
func (h *CatalogHandler) LatestAlbum(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	stats, err := h.catalog.LatestAlbum(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// ArtistID handles GET /artist-id/:id
func (h *CatalogHandler) ArtistID(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	artistID, err := h.catalog.ArtistIDByUser(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"artist_id": artistID})
}

// ListenerSummary handles GET /listener/:id
func (h *CatalogHandler) ListenerSummary(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.SendValidationError(c, "id", "must be a positive integer")
	}

	summary, err := h.catalog.ListenerSummary(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// UpdateArtistProfile handles POST /artist/profile/update for the caller's
// own profile
func (h *CatalogHandler) UpdateArtistProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		return utils.SendUnauthorizedError(c, "Authentication required")
	}

	var req struct {
		Name    string `json:"name" form:"name"`
		Country string `json:"country" form:"country"`
		Bio     string `json:"bio" form:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.SendValidationError(c, "body", "invalid request body")
	}

	artist, err := h.catalog.UpdateArtistProfile(user.ID, services.ArtistProfileUpdate{
		Name:    req.Name,
		Country: req.Country,
		Bio:     req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated",
		"artist":  artist,
	})
}

// ListUsers handles GET /users?page=&pageSize=. Admin only.
func (h *CatalogHandler) ListUsers(c *fiber.Ctx) error {
	page := pagination.FromQuery(c, 50)

	users, total, err := h.catalog.ListUsers(page.Limit(), page.Offset())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data":       users,
		"pagination": page.Describe(total),
	})
}
