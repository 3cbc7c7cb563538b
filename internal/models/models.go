package models

import (
	"time"
)

// Role identifiers as stored in users.role_id
const (
	RoleListener int = 1
	RoleArtist   int = 2
	RoleAdmin    int = 3
)

// PlaceholderSongName is used when an upload does not carry a song name
const PlaceholderSongName = "NO-NAME"

// User represents the users table (an account)
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"user_id"`
	Username     string    `gorm:"size:255;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RoleID       int       `gorm:"not null" json:"role_id"`
	DisplayName  string    `gorm:"size:255" json:"display_name"`
	FirstName    string    `gorm:"size:255" json:"first_name"`
	LastName     string    `gorm:"size:255" json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Artist represents the artists table, one profile per artist account
type Artist struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"artist_id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	ArtistName string    `gorm:"size:255" json:"artist_name"`
	Country    string    `gorm:"size:100" json:"country"`
	Bio        string    `json:"bio"`
	Verified   bool      `gorm:"not null" json:"verified"`
	CreatedAt  time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Artist) TableName() string {
	return "artists"
}

// Album represents the albums table; the cover image lives inline
type Album struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"album_id"`
	ArtistID   int64     `gorm:"index;not null" json:"artist_id"`
	AlbumName  string    `gorm:"size:255;not null" json:"album_name"`
	AlbumCover []byte    `gorm:"not null" json:"-"`
	CreateAt   time.Time `gorm:"column:create_at;index" json:"create_at"`
	UpdateAt   time.Time `gorm:"column:update_at" json:"update_at"`

	Artist *Artist `gorm:"foreignKey:ArtistID" json:"-"`
}

func (Album) TableName() string {
	return "albums"
}

// Song represents the songs table. Its payload is stored separately in SongFile.
type Song struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"song_id"`
	AlbumID     *int64    `gorm:"index" json:"album_id"`
	ArtistID    int64     `gorm:"index;not null" json:"artist_id"`
	SongName    string    `gorm:"size:255;not null" json:"song_name"`
	Duration    int       `gorm:"not null;default:0" json:"duration"` // seconds
	Plays       int64     `gorm:"not null;default:0" json:"plays"`
	IsAvailable bool      `gorm:"column:is_available;not null" json:"isAvailable"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	Album  *Album  `gorm:"foreignKey:AlbumID" json:"-"`
	Artist *Artist `gorm:"foreignKey:ArtistID" json:"-"`
}

func (Song) TableName() string {
	return "songs"
}

// SongFile holds the binary payload of exactly one song
type SongFile struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"song_file_id"`
	SongID      int64  `gorm:"uniqueIndex;not null" json:"song_id"`
	SongFile    []byte `gorm:"column:song_file;not null" json:"-"`
	FileName    string `gorm:"size:255" json:"file_name"`
	ContentType string `gorm:"size:100" json:"content_type"`

	Song *Song `gorm:"foreignKey:SongID" json:"-"`
}

func (SongFile) TableName() string {
	return "song_files"
}

// Playlist represents the playlists table
type Playlist struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"playlist_id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Avatar    *string   `gorm:"size:512" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistSong is the playlist membership relation. Inactive rows are hidden, not deleted.
type PlaylistSong struct {
	PlaylistID int64     `gorm:"primaryKey;autoIncrement:false" json:"playlist_id"`
	SongID     int64     `gorm:"primaryKey;autoIncrement:false" json:"song_id"`
	Active     bool      `gorm:"not null" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PlaylistSong) TableName() string {
	return "playlist_songs"
}

// Like records that an account liked a song
type Like struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	SongID    int64     `gorm:"primaryKey;autoIncrement:false;index" json:"song_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "likes"
}

// SongPlayHistory is an append-only play log
type SongPlayHistory struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64     `gorm:"index;not null" json:"user_id"`
	SongID   int64     `gorm:"index;not null" json:"song_id"`
	PlayedAt time.Time `gorm:"not null" json:"played_at"`
}

func (SongPlayHistory) TableName() string {
	return "song_play_history"
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Artist{},
		&Album{},
		&Song{},
		&SongFile{},
		&Playlist{},
		&PlaylistSong{},
		&Like{},
		&SongPlayHistory{},
	}
}

// RoleName maps a role id to its display name
func RoleName(roleID int) string {
	switch roleID {
	case RoleListener:
		return "Listener"
	case RoleArtist:
		return "Artist"
	case RoleAdmin:
		return "Admin"
	default:
		return ""
	}
}
