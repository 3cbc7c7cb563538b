package test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tunebox/internal/database"
	"tunebox/internal/models"
)

// GetTestDB opens a migrated sqlite database in a per-test temp file. The
// production migration runs, so the quota triggers are active.
func GetTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tunebox.db")
	db, err := gorm.Open(sqlite.Open(database.BuildSQLiteDSN(path)), database.NewGORMConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.NewMigrationManager(db, nil).Migrate())
	return db
}

// CreateTestUser creates an account with a bcrypt hash of password
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string, roleID int) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		RoleID:       roleID,
		DisplayName:  username,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestArtist creates an artist account together with its profile
func CreateTestArtist(t *testing.T, db *gorm.DB, username string, verified bool) (*models.User, *models.Artist) {
	t.Helper()

	user := CreateTestUser(t, db, username, "ValidPass123!", models.RoleArtist)
	artist := &models.Artist{
		UserID:     user.ID,
		ArtistName: username,
		Verified:   verified,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, db.Create(artist).Error)
	return user, artist
}

// CreateTestAlbum inserts an album directly, bypassing the upload pipeline
func CreateTestAlbum(t *testing.T, db *gorm.DB, artistID int64, name string, createdAt time.Time) *models.Album {
	t.Helper()

	album := &models.Album{
		ArtistID:   artistID,
		AlbumName:  name,
		AlbumCover: PNGBytes(t),
		CreateAt:   createdAt,
		UpdateAt:   createdAt,
	}
	require.NoError(t, db.Create(album).Error)
	return album
}

// CreateTestSong inserts a song directly, bypassing the upload pipeline
func CreateTestSong(t *testing.T, db *gorm.DB, artistID int64, albumID *int64, name string, createdAt time.Time) *models.Song {
	t.Helper()

	song := &models.Song{
		AlbumID:     albumID,
		ArtistID:    artistID,
		SongName:    name,
		IsAvailable: true,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(song).Error)
	return song
}

// PNGBytes returns a small valid PNG image
func PNGBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

// JPEGBytes returns a small valid JPEG image
func JPEGBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	return img
}

// WAVBytes returns a valid mono 16-bit PCM WAV file of the given length in
// seconds. seed varies the samples so two files never share the same bytes.
func WAVBytes(t *testing.T, seconds int, seed int) []byte {
	t.Helper()

	const sampleRate = 8000
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, sampleRate*seconds)
	for i := range data {
		data[i] = (i*7 + seed*131) % 2000
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

// MP3FrameCount is the number of frames written by MP3Bytes
const MP3FrameCount = 40

// MP3Bytes returns a silent MPEG-1 Layer III stream of MP3FrameCount frames
// (128 kbit/s, 44.1 kHz, joint stereo, 1152 samples per frame). withID3
// prepends an empty ID3v2.3 tag.
func MP3Bytes(t *testing.T, withID3 bool) []byte {
	t.Helper()

	const frameSize = 417
	var buf bytes.Buffer
	if withID3 {
		// header plus a 16 byte syncsafe-sized body of padding
		buf.Write([]byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 16})
		buf.Write(make([]byte, 16))
	}
	for i := 0; i < MP3FrameCount; i++ {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
		buf.Write(frame)
	}
	return buf.Bytes()
}
