package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tunebox/internal/config"
	"tunebox/internal/middleware"
	"tunebox/internal/models"
)

// Handlers groups every endpoint handler of the API
type Handlers struct {
	Auth     *AuthHandler
	Upload   *UploadHandler
	Catalog  *CatalogHandler
	Playlist *PlaylistHandler
	Report   *ReportHandler
	Health   *HealthHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts the API on app
func RegisterRoutes(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware, limits config.RateLimitConfig) {
	app.Get("/healthz", h.Health.HealthCheck)
	app.Get("/metrics", h.Metrics.Metrics())

	api := app.Group("", middleware.NewRateLimiter(limits))

	authLimiter := middleware.NewAuthRateLimiter(limits)
	protected := auth.JWTProtected()
	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Accounts
	api.Post("/login", authLimiter, h.Auth.Login)
	api.Post("/register", authLimiter, h.Auth.Register)
	api.Get("/register/:username", h.Auth.CheckUsername)
	api.Post("/create-admin", protected, adminOnly, h.Auth.CreateAdmin)
	api.Get("/users", protected, adminOnly, h.Catalog.ListUsers)

	// Uploads
	optional := auth.OptionalAuth()
	uploadLimiter := middleware.NewUploadRateLimiter(limits)
	api.Post("/album-insert", optional, uploadLimiter, h.Upload.InsertAlbum)
	api.Post("/song-insert", optional, uploadLimiter, h.Upload.InsertSong)
	api.Post("/album/:album_id/songs", optional, uploadLimiter, h.Upload.InsertSongBatch)

	// Catalog
	api.Get("/songs/search", h.Catalog.SearchSongs)
	api.Get("/songs/:id/album-cover", h.Catalog.SongAlbumCover)
	api.Get("/songs/:id/stream", h.Catalog.StreamSong)
	api.Post("/songs/:id/play", protected, h.Catalog.RecordPlay)
	api.Post("/songs/:id/like", protected, h.Catalog.LikeSong)
	api.Delete("/songs/:id/like", protected, h.Catalog.UnlikeSong)
	api.Get("/artists", h.Catalog.TopArtists)
	api.Get("/albums", h.Catalog.TopAlbums)
	api.Get("/album/playcount/3", h.Catalog.TopAlbumsByPlays)
	api.Get("/album/:album_id/IMG", h.Catalog.AlbumCover)
	api.Get("/artist/:id", h.Catalog.ArtistSummary)
	api.Get("/artist/:id/albumlatest", h.Catalog.LatestAlbum)
	api.Get("/artist-id/:id", h.Catalog.ArtistID)
	api.Get("/listener/:id", h.Catalog.ListenerSummary)
	api.Post("/artist/profile/update", protected, auth.RequireRole(models.RoleArtist), h.Catalog.UpdateArtistProfile)

	// Playlists
	playlists := api.Group("/playlist", optional)
	playlists.Post("/new", h.Playlist.CreatePlaylist)
	playlists.Get("/:id", h.Playlist.GetPlaylist)
	playlists.Post("/:id/song", h.Playlist.SetPlaylistSong)
	playlists.Delete("/:id/song/:song_id", h.Playlist.RemovePlaylistSong)
	playlists.Delete("/:id", h.Playlist.DeletePlaylist)

	// Reports
	api.Get("/artist-rating", protected, h.Report.ArtistRatings)
	api.Get("/song-rating", protected, h.Report.SongRatings)
	api.Get("/user-rating", protected, h.Report.UserRatings)
}
