package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ReportService runs the read-only activity reports. Each report returns the
// full result set; filtering and sorting happen in the client.
type ReportService struct {
	db *gorm.DB
}

// ArtistRating is one row of the per-artist report
type ArtistRating struct {
	ArtistID    int64     `json:"artist_id"`
	ArtistName  string    `json:"artist_name"`
	CreatedAt   time.Time `json:"created_at"`
	TotalSongs  int64     `json:"total_songs"`
	TotalAlbums int64     `json:"total_albums"`
	TotalLikes  int64     `json:"total_likes"`
}

// SongRating is one row of the per-song report
type SongRating struct {
	SongID     int64     `json:"song_id"`
	SongName   string    `json:"song_name"`
	ArtistName string    `json:"artist_name"`
	CreatedAt  time.Time `json:"created_at"`
	TotalLikes int64     `json:"total_likes"`
	TotalPlays int64     `json:"total_plays"`
}

// UserRating is one row of the per-user report
type UserRating struct {
	UserID           int64     `json:"user_id"`
	Username         string    `json:"username"`
	DisplayName      string    `json:"display_name"`
	CreatedAt        time.Time `json:"created_at"`
	SongsPlayed      int64     `json:"songs_played"`
	LikesGiven       int64     `json:"likes_given"`
	PlaylistsCreated int64     `json:"playlists_created"`
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// ArtistRatings counts songs, albums and likes per artist, most liked first
func (r *ReportService) ArtistRatings() ([]ArtistRating, error) {
	rows := []ArtistRating{}
	err := r.db.Table("artists AS a").
		Select(`a.id AS artist_id, a.artist_name, a.created_at,
			(SELECT COUNT(*) FROM songs s WHERE s.artist_id = a.id) AS total_songs,
			(SELECT COUNT(*) FROM albums al WHERE al.artist_id = a.id) AS total_albums,
			(SELECT COUNT(*) FROM likes l JOIN songs s ON s.id = l.song_id WHERE s.artist_id = a.id) AS total_likes`).
		Order("total_likes DESC, a.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build artist report: %w", err)
	}
	return rows, nil
}

// SongRatings counts likes and plays per song, most liked then most played first
func (r *ReportService) SongRatings() ([]SongRating, error) {
	rows := []SongRating{}
	err := r.db.Table("songs AS s").
		Select(`s.id AS song_id, s.song_name, COALESCE(a.artist_name, '') AS artist_name, s.created_at,
			(SELECT COUNT(*) FROM likes l WHERE l.song_id = s.id) AS total_likes,
			(SELECT COUNT(*) FROM song_play_history ph WHERE ph.song_id = s.id) AS total_plays`).
		Joins("LEFT JOIN artists a ON a.id = s.artist_id").
		Order("total_likes DESC, total_plays DESC, s.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build song report: %w", err)
	}
	return rows, nil
}

// UserRatings counts plays, likes and playlists per account
func (r *ReportService) UserRatings() ([]UserRating, error) {
	rows := []UserRating{}
	err := r.db.Table("users AS u").
		Select(`u.id AS user_id, u.username, u.display_name, u.created_at,
			(SELECT COUNT(*) FROM song_play_history ph WHERE ph.user_id = u.id) AS songs_played,
			(SELECT COUNT(*) FROM likes l WHERE l.user_id = u.id) AS likes_given,
			(SELECT COUNT(*) FROM playlists p WHERE p.user_id = u.id) AS playlists_created`).
		Order("u.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build user report: %w", err)
	}
	return rows, nil
}
