package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tunebox/internal/models"
)

// CatalogService serves the read side of the catalog and records listener
// activity (plays and likes)
type CatalogService struct {
	db     *gorm.DB
	logger *zerolog.Logger
	now    func() time.Time
}

// SongSearchRow is one search hit
type SongSearchRow struct {
	SongID      int64     `json:"song_id"`
	SongName    string    `json:"song_name"`
	Duration    int       `json:"duration"`
	Plays       int64     `json:"plays"`
	CreatedAt   time.Time `json:"created_at"`
	IsAvailable bool      `json:"isAvailable"`
	AlbumID     *int64    `json:"album_id"`
	AlbumName   *string   `json:"album_name"`
	ArtistName  string    `json:"artist_name"`
}

// ArtistRow is a row of the newest artists list
type ArtistRow struct {
	ArtistID   int64  `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	Country    string `json:"country"`
}

// AlbumRow is a row of the newest albums list
type AlbumRow struct {
	AlbumID    int64  `json:"album_id"`
	AlbumName  string `json:"album_name"`
	ArtistID   int64  `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	HasCover   bool   `json:"has_cover"`
}

// AlbumPlaysRow is a row of the most played albums list
type AlbumPlaysRow struct {
	AlbumID    int64  `json:"album_id"`
	AlbumName  string `json:"album_name"`
	ArtistName string `json:"artist_name"`
	PlayCount  int64  `json:"playCount"`
}

// ListenerSummary is the header data of a listener page
type ListenerSummary struct {
	DisplayName string `json:"display_name"`
	Playlists   int64  `json:"playlists"`
}

// ArtistSummary is the header data of an artist page
type ArtistSummary struct {
	ArtistID    int64  `json:"artist_id"`
	DisplayName string `json:"display_name"`
	ArtistName  string `json:"artist_name"`
	AlbumCount  int64  `json:"album_count"`
	SongCount   int64  `json:"song_count"`
}

// LatestAlbumStats describes an artist's newest album
type LatestAlbumStats struct {
	AlbumID   int64  `json:"album_id"`
	Name      string `json:"name"`
	Streams   int64  `json:"streams"`
	LikeSaves int64  `json:"likeSaves"`
}

// ArtistProfileUpdate carries the editable artist profile fields
type ArtistProfileUpdate struct {
	Name    string
	Country string
	Bio     string
}

const topListSize = 3

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// SearchSongs matches keyword against song names, artist display names and
// full names, ignoring case. An empty keyword lists every song.
func (c *CatalogService) SearchSongs(keyword string) ([]SongSearchRow, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"

	rows := []SongSearchRow{}
	err := c.db.Table("songs AS s").
		Select(`s.id AS song_id, s.song_name, s.duration, s.plays, s.created_at, s.is_available,
			s.album_id, al.album_name, COALESCE(NULLIF(u.display_name, ''), ar.artist_name) AS artist_name`).
		Joins("JOIN artists ar ON ar.id = s.artist_id").
		Joins("JOIN users u ON u.id = ar.user_id").
		Joins("LEFT JOIN albums al ON al.id = s.album_id").
		Where(`LOWER(s.song_name) LIKE ? OR LOWER(u.display_name) LIKE ? OR LOWER(ar.artist_name) LIKE ?
			OR LOWER(u.first_name || ' ' || u.last_name) LIKE ?`, pattern, pattern, pattern, pattern).
		Order("s.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	return rows, nil
}

// TopArtists returns the newest named artists
func (c *CatalogService) TopArtists() ([]ArtistRow, error) {
	rows := []ArtistRow{}
	err := c.db.Table("artists").
		Select("id AS artist_id, artist_name, country").
		Where("artist_name IS NOT NULL AND artist_name <> ''").
		Order("created_at DESC, id DESC").
		Limit(topListSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return rows, nil
}

// TopAlbums returns the newest albums. Covers are fetched separately.
func (c *CatalogService) TopAlbums() ([]AlbumRow, error) {
	rows := []AlbumRow{}
	err := c.db.Table("albums AS a").
		Select(`a.id AS album_id, a.album_name, a.artist_id, art.artist_name,
			CASE WHEN a.album_cover IS NULL THEN 0 ELSE 1 END AS has_cover`).
		Joins("JOIN artists art ON art.id = a.artist_id").
		Order("a.create_at DESC, a.id DESC").
		Limit(topListSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return rows, nil
}

// TopAlbumsByPlays returns the albums whose songs were played most
func (c *CatalogService) TopAlbumsByPlays() ([]AlbumPlaysRow, error) {
	rows := []AlbumPlaysRow{}
	err := c.db.Table("albums AS a").
		Select("a.id AS album_id, a.album_name, art.artist_name, COALESCE(SUM(s.plays), 0) AS play_count").
		Joins("JOIN artists art ON art.id = a.artist_id").
		Joins("JOIN songs s ON s.album_id = a.id").
		Group("a.id, a.album_name, art.artist_name").
		Order("play_count DESC, a.id").
		Limit(topListSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list albums by plays: %w", err)
	}
	return rows, nil
}

// AlbumCover returns the cover bytes of an album
func (c *CatalogService) AlbumCover(albumID int64) ([]byte, error) {
	return NewRepository(c.db).GetAlbumCover(albumID)
}

// SongAlbumCover returns the cover of the album a song belongs to
func (c *CatalogService) SongAlbumCover(songID int64) ([]byte, error) {
	repo := NewRepository(c.db)
	song, err := repo.GetSongByID(songID)
	if err != nil {
		return nil, err
	}
	if song.AlbumID == nil {
		return nil, fmt.Errorf("album of song %d: %w", songID, ErrNotFound)
	}
	return repo.GetAlbumCover(*song.AlbumID)
}

// StreamSong returns the stored file of an available song
func (c *CatalogService) StreamSong(songID int64) (*models.SongFile, error) {
	repo := NewRepository(c.db)
	song, err := repo.GetSongByID(songID)
	if err != nil {
		return nil, err
	}
	if !song.IsAvailable {
		return nil, fmt.Errorf("song %d is unavailable: %w", songID, ErrNotFound)
	}
	return repo.GetSongFile(songID)
}

// ListenerSummary returns a user's display name and playlist count
func (c *CatalogService) ListenerSummary(userID int64) (*ListenerSummary, error) {
	repo := NewRepository(c.db)
	user, err := repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	count, err := repo.CountPlaylistsByUser(userID)
	if err != nil {
		return nil, err
	}
	return &ListenerSummary{DisplayName: user.DisplayName, Playlists: count}, nil
}

// ArtistSummary returns album and song counts for the artist owned by userID
func (c *CatalogService) ArtistSummary(userID int64) (*ArtistSummary, error) {
	var summary ArtistSummary
	res := c.db.Table("artists AS a").
		Select(`a.id AS artist_id, u.display_name, a.artist_name,
			(SELECT COUNT(*) FROM albums WHERE artist_id = a.id) AS album_count,
			(SELECT COUNT(*) FROM songs WHERE artist_id = a.id) AS song_count`).
		Joins("JOIN users u ON u.id = a.user_id").
		Where("a.user_id = ?", userID).
		Scan(&summary)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load artist summary: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrArtistProfileNotFound
	}
	return &summary, nil
}

// LatestAlbum returns stream and like totals of the newest album of the
// artist owned by userID
func (c *CatalogService) LatestAlbum(userID int64) (*LatestAlbumStats, error) {
	artist, err := NewRepository(c.db).GetArtistByUserID(userID)
	if err != nil {
		return nil, err
	}

	var stats LatestAlbumStats
	res := c.db.Table("albums AS a").
		Select(`a.id AS album_id, a.album_name AS name,
			(SELECT COALESCE(SUM(s.plays), 0) FROM songs s WHERE s.album_id = a.id) AS streams,
			(SELECT COUNT(*) FROM likes l JOIN songs s ON s.id = l.song_id WHERE s.album_id = a.id) AS like_saves`).
		Where("a.artist_id = ?", artist.ID).
		Order("a.create_at DESC, a.id DESC").
		Limit(1).
		Scan(&stats)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to load latest album: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("latest album: %w", ErrNotFound)
	}
	return &stats, nil
}

// ArtistIDByUser resolves the artist id owned by userID
func (c *CatalogService) ArtistIDByUser(userID int64) (int64, error) {
	artist, err := NewRepository(c.db).GetArtistByUserID(userID)
	if err != nil {
		return 0, err
	}
	return artist.ID, nil
}

// UpdateArtistProfile edits the profile owned by userID
func (c *CatalogService) UpdateArtistProfile(userID int64, in ArtistProfileUpdate) (*models.Artist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	repo := NewRepository(c.db)
	artist, err := repo.GetArtistByUserID(userID)
	if err != nil {
		return nil, err
	}
	artist.ArtistName = name
	artist.Country = strings.TrimSpace(in.Country)
	artist.Bio = strings.TrimSpace(in.Bio)
	if err := repo.UpdateArtist(artist); err != nil {
		return nil, fmt.Errorf("failed to update artist profile: %w", err)
	}
	return artist, nil
}

// RecordPlay appends a play to the history and bumps the song's counter
func (c *CatalogService) RecordPlay(userID, songID int64) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		song, err := NewRepository(tx).GetSongByID(songID)
		if err != nil {
			return err
		}
		if !song.IsAvailable {
			return fmt.Errorf("song %d is unavailable: %w", songID, ErrNotFound)
		}
		if err := tx.Create(&models.SongPlayHistory{
			UserID:   userID,
			SongID:   songID,
			PlayedAt: c.now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to record play: %w", err)
		}
		return tx.Model(&models.Song{}).Where("id = ?", songID).
			UpdateColumn("plays", gorm.Expr("plays + ?", 1)).Error
	})
}

// LikeSong marks a song as liked by userID. Liking twice is a no-op.
func (c *CatalogService) LikeSong(userID, songID int64) error {
	if _, err := NewRepository(c.db).GetSongByID(songID); err != nil {
		return err
	}
	like := &models.Like{UserID: userID, SongID: songID, CreatedAt: c.now()}
	if err := c.db.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
		return fmt.Errorf("failed to like song: %w", err)
	}
	return nil
}

// UnlikeSong removes a like
func (c *CatalogService) UnlikeSong(userID, songID int64) error {
	res := c.db.Where("user_id = ? AND song_id = ?", userID, songID).Delete(&models.Like{})
	if res.Error != nil {
		return fmt.Errorf("failed to unlike song: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("like: %w", ErrNotFound)
	}
	return nil
}

// ListUsers returns one page of accounts ordered by id and the total count
func (c *CatalogService) ListUsers(limit, offset int) ([]models.User, int64, error) {
	users, total, err := NewRepository(c.db).ListUsers(limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
