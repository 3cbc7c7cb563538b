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

// PlaylistService manages playlists and their memberships. A membership row
// is hidden by clearing its active flag and removed for good by
// RemovePlaylistSong.
type PlaylistService struct {
	db     *gorm.DB
	logger *zerolog.Logger
	now    func() time.Time
}

// PlaylistSongRow is one visible song of a playlist
type PlaylistSongRow struct {
	SongID     int64     `json:"song_id"`
	SongName   string    `json:"song_name"`
	ArtistName string    `json:"artist_name"`
	AlbumID    *int64    `json:"album_id"`
	Duration   int       `json:"duration"`
	AddedAt    time.Time `json:"added_at"`
}

// PlaylistView is a playlist with its active songs
type PlaylistView struct {
	models.Playlist
	Songs []PlaylistSongRow `json:"songs"`
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService(db *gorm.DB, logger *zerolog.Logger) *PlaylistService {
	return &PlaylistService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// CreatePlaylist creates an empty playlist owned by userID
func (p *PlaylistService) CreatePlaylist(userID int64, title string, avatar *string) (*models.Playlist, error) {
	title = strings.TrimSpace(title)
	if userID <= 0 || title == "" {
		return nil, fmt.Errorf("%w: title and userId are required", ErrInvalidInput)
	}
	if avatar != nil && strings.TrimSpace(*avatar) == "" {
		avatar = nil
	}

	repo := NewRepository(p.db)
	if _, err := repo.GetUserByID(userID); err != nil {
		return nil, err
	}

	now := p.now()
	playlist := &models.Playlist{
		UserID:    userID,
		Title:     title,
		Avatar:    avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreatePlaylist(playlist); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if playlist.ID == 0 {
		return nil, ErrMissingIdentifier
	}

	if p.logger != nil {
		p.logger.Info().Int64("playlist_id", playlist.ID).Int64("user_id", userID).Msg("Playlist created")
	}
	return playlist, nil
}

// SetPlaylistSong adds a song to a playlist or flips the active flag of an
// existing membership. actorID, when non-zero, must own the playlist.
func (p *PlaylistService) SetPlaylistSong(actorID, playlistID, songID int64, active bool) error {
	if playlistID <= 0 || songID <= 0 {
		return fmt.Errorf("%w: playlist id and song_id are required", ErrInvalidInput)
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		playlist, err := p.ownedPlaylist(repo, actorID, playlistID)
		if err != nil {
			return err
		}
		if _, err := repo.GetSongByID(songID); err != nil {
			return err
		}

		now := p.now()
		membership := &models.PlaylistSong{
			PlaylistID: playlistID,
			SongID:     songID,
			Active:     active,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "playlist_id"}, {Name: "song_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
		}).Create(membership).Error; err != nil {
			return fmt.Errorf("failed to update playlist membership: %w", err)
		}

		return tx.Model(playlist).Update("updated_at", now).Error
	})
}

// RemovePlaylistSong deletes a membership row
func (p *PlaylistService) RemovePlaylistSong(actorID, playlistID, songID int64) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		playlist, err := p.ownedPlaylist(NewRepository(tx), actorID, playlistID)
		if err != nil {
			return err
		}

		res := tx.Where("playlist_id = ? AND song_id = ?", playlistID, songID).Delete(&models.PlaylistSong{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove song from playlist: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("song %d in playlist %d: %w", songID, playlistID, ErrNotFound)
		}

		return tx.Model(playlist).Update("updated_at", p.now()).Error
	})
}

// DeletePlaylist deletes a playlist with all of its memberships
func (p *PlaylistService) DeletePlaylist(actorID, playlistID int64) error {
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if _, err := p.ownedPlaylist(NewRepository(tx), actorID, playlistID); err != nil {
			return err
		}
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&models.PlaylistSong{}).Error; err != nil {
			return fmt.Errorf("failed to delete playlist songs: %w", err)
		}
		if err := tx.Delete(&models.Playlist{}, playlistID).Error; err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		return nil
	})
	if err == nil && p.logger != nil {
		p.logger.Info().Int64("playlist_id", playlistID).Msg("Playlist deleted")
	}
	return err
}

// GetPlaylist returns a playlist with its active songs, oldest first
func (p *PlaylistService) GetPlaylist(playlistID int64) (*PlaylistView, error) {
	playlist, err := NewRepository(p.db).GetPlaylistByID(playlistID)
	if err != nil {
		return nil, err
	}

	songs := []PlaylistSongRow{}
	err = p.db.Table("playlist_songs AS ps").
		Select("s.id AS song_id, s.song_name, a.artist_name, s.album_id, s.duration, ps.created_at AS added_at").
		Joins("JOIN songs s ON s.id = ps.song_id").
		Joins("JOIN artists a ON a.id = s.artist_id").
		Where("ps.playlist_id = ? AND ps.active = ?", playlistID, true).
		Order("ps.created_at, s.id").
		Scan(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist songs: %w", err)
	}

	return &PlaylistView{Playlist: *playlist, Songs: songs}, nil
}

func (p *PlaylistService) ownedPlaylist(repo *Repository, actorID, playlistID int64) (*models.Playlist, error) {
	playlist, err := repo.GetPlaylistByID(playlistID)
	if err != nil {
		return nil, err
	}
	if actorID != 0 && playlist.UserID != actorID {
		return nil, fmt.Errorf("%w: playlist %d belongs to another user", ErrForbidden, playlistID)
	}
	return playlist, nil
}
