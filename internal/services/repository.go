package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tunebox/internal/models"
)

// Repository handles database operations for models
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// WithTx returns a repository bound to an open transaction
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// DB returns the underlying handle
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// notFound maps gorm's missing-row error onto ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// User operations
func (r *Repository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *Repository) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *Repository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

func (r *Repository) UsernameExists(username string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListUsers(limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := r.db.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Artist operations
func (r *Repository) CreateArtist(artist *models.Artist) error {
	return r.db.Create(artist).Error
}

// GetArtistByUserID resolves the artist profile owned by an account
func (r *Repository) GetArtistByUserID(userID int64) (*models.Artist, error) {
	var artist models.Artist
	if err := r.db.Where("user_id = ?", userID).First(&artist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtistProfileNotFound
		}
		return nil, err
	}
	return &artist, nil
}

func (r *Repository) UpdateArtist(artist *models.Artist) error {
	return r.db.Save(artist).Error
}

// Album operations
func (r *Repository) CreateAlbum(album *models.Album) error {
	return r.db.Create(album).Error
}

// GetAlbumByID loads album metadata without the cover payload
func (r *Repository) GetAlbumByID(id int64) (*models.Album, error) {
	var album models.Album
	if err := r.db.Omit("album_cover").First(&album, id).Error; err != nil {
		return nil, notFound(err, "album")
	}
	return &album, nil
}

func (r *Repository) GetAlbumCover(id int64) ([]byte, error) {
	var album models.Album
	if err := r.db.Select("id", "album_cover").First(&album, id).Error; err != nil {
		return nil, notFound(err, "album")
	}
	return album.AlbumCover, nil
}

// Song operations
func (r *Repository) CreateSong(song *models.Song) error {
	return r.db.Create(song).Error
}

func (r *Repository) GetSongByID(id int64) (*models.Song, error) {
	var song models.Song
	if err := r.db.First(&song, id).Error; err != nil {
		return nil, notFound(err, "song")
	}
	return &song, nil
}

func (r *Repository) CreateSongFile(file *models.SongFile) error {
	return r.db.Create(file).Error
}

func (r *Repository) GetSongFile(songID int64) (*models.SongFile, error) {
	var file models.SongFile
	if err := r.db.Where("song_id = ?", songID).First(&file).Error; err != nil {
		return nil, notFound(err, "song file")
	}
	return &file, nil
}

// Playlist operations
func (r *Repository) CreatePlaylist(playlist *models.Playlist) error {
	return r.db.Create(playlist).Error
}

func (r *Repository) GetPlaylistByID(id int64) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := r.db.First(&playlist, id).Error; err != nil {
		return nil, notFound(err, "playlist")
	}
	return &playlist, nil
}

func (r *Repository) CountPlaylistsByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Playlist{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
