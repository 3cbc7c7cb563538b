package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunebox/internal/models"
	"tunebox/internal/test"
)

func TestReports(t *testing.T) {
	db := test.GetTestDB(t)
	reports := NewReportService(db)
	catalog := NewCatalogService(db, nil)

	_, popular := test.CreateTestArtist(t, db, "popular", true)
	_, quiet := test.CreateTestArtist(t, db, "quiet", true)
	album := test.CreateTestAlbum(t, db, popular.ID, "Chart Topper", time.Now())
	hit := test.CreateTestSong(t, db, popular.ID, &album.ID, "Hit", time.Now())
	deep := test.CreateTestSong(t, db, popular.ID, &album.ID, "Deep Cut", time.Now())
	test.CreateTestSong(t, db, quiet.ID, nil, "Whisper", time.Now())

	fan1 := test.CreateTestUser(t, db, "fan1", "ValidPass123!", models.RoleListener)
	fan2 := test.CreateTestUser(t, db, "fan2", "ValidPass123!", models.RoleListener)

	require.NoError(t, catalog.LikeSong(fan1.ID, hit.ID))
	require.NoError(t, catalog.LikeSong(fan2.ID, hit.ID))
	require.NoError(t, catalog.LikeSong(fan1.ID, deep.ID))
	require.NoError(t, catalog.RecordPlay(fan1.ID, hit.ID))
	require.NoError(t, catalog.RecordPlay(fan1.ID, deep.ID))
	require.NoError(t, catalog.RecordPlay(fan2.ID, deep.ID))
	require.NoError(t, db.Create(&models.Playlist{UserID: fan1.ID, Title: "Faves"}).Error)

	t.Run("artists", func(t *testing.T) {
		rows, err := reports.ArtistRatings()
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, popular.ID, rows[0].ArtistID)
		assert.Equal(t, "popular", rows[0].ArtistName)
		assert.Equal(t, int64(2), rows[0].TotalSongs)
		assert.Equal(t, int64(1), rows[0].TotalAlbums)
		assert.Equal(t, int64(3), rows[0].TotalLikes)
		assert.False(t, rows[0].CreatedAt.IsZero())

		assert.Equal(t, quiet.ID, rows[1].ArtistID)
		assert.Equal(t, int64(1), rows[1].TotalSongs)
		assert.Zero(t, rows[1].TotalAlbums)
		assert.Zero(t, rows[1].TotalLikes)
	})

	t.Run("songs", func(t *testing.T) {
		rows, err := reports.SongRatings()
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, hit.ID, rows[0].SongID)
		assert.Equal(t, int64(2), rows[0].TotalLikes)
		assert.Equal(t, int64(1), rows[0].TotalPlays)
		assert.Equal(t, "popular", rows[0].ArtistName)

		assert.Equal(t, deep.ID, rows[1].SongID)
		assert.Equal(t, int64(1), rows[1].TotalLikes)
		assert.Equal(t, int64(2), rows[1].TotalPlays)

		assert.Equal(t, "Whisper", rows[2].SongName)
		assert.Equal(t, "quiet", rows[2].ArtistName)
	})

	t.Run("users", func(t *testing.T) {
		rows, err := reports.UserRatings()
		require.NoError(t, err)
		require.Len(t, rows, 4)

		byName := map[string]UserRating{}
		for _, row := range rows {
			byName[row.Username] = row
		}
		assert.Equal(t, int64(2), byName["fan1"].SongsPlayed)
		assert.Equal(t, int64(2), byName["fan1"].LikesGiven)
		assert.Equal(t, int64(1), byName["fan1"].PlaylistsCreated)
		assert.Equal(t, int64(1), byName["fan2"].SongsPlayed)
		assert.Equal(t, int64(1), byName["fan2"].LikesGiven)
		assert.Zero(t, byName["popular"].SongsPlayed)

		for i := 1; i < len(rows); i++ {
			assert.Less(t, rows[i-1].UserID, rows[i].UserID)
		}
	})
}

func TestReportsEmpty(t *testing.T) {
	reports := NewReportService(test.GetTestDB(t))

	artists, err := reports.ArtistRatings()
	require.NoError(t, err)
	assert.NotNil(t, artists)
	assert.Empty(t, artists)

	songs, err := reports.SongRatings()
	require.NoError(t, err)
	assert.Empty(t, songs)
}
