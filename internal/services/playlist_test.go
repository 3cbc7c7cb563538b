package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunebox/internal/models"
	"tunebox/internal/test"
	"tunebox/internal/utils"
)

func TestPlaylistLifecycle(t *testing.T) {
	db := test.GetTestDB(t)
	svc := NewPlaylistService(db, nil)

	owner := test.CreateTestUser(t, db, "listener", "ValidPass123!", models.RoleListener)
	_, artist := test.CreateTestArtist(t, db, "band", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Hits", time.Now())
	first := test.CreateTestSong(t, db, artist.ID, &album.ID, "First", time.Now())
	second := test.CreateTestSong(t, db, artist.ID, &album.ID, "Second", time.Now())

	avatar := "avatar.png"
	playlist, err := svc.CreatePlaylist(owner.ID, "Road Trip", &avatar)
	require.NoError(t, err)
	require.NotZero(t, playlist.ID)

	require.NoError(t, svc.SetPlaylistSong(owner.ID, playlist.ID, first.ID, true))
	require.NoError(t, svc.SetPlaylistSong(0, playlist.ID, second.ID, true))

	view, err := svc.GetPlaylist(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", view.Title)
	require.NotNil(t, view.Avatar)
	assert.Equal(t, "avatar.png", *view.Avatar)
	require.Len(t, view.Songs, 2)
	assert.Equal(t, "band", view.Songs[0].ArtistName)

	t.Run("deactivated songs are hidden but kept", func(t *testing.T) {
		require.NoError(t, svc.SetPlaylistSong(owner.ID, playlist.ID, second.ID, false))

		view, err := svc.GetPlaylist(playlist.ID)
		require.NoError(t, err)
		require.Len(t, view.Songs, 1)
		assert.Equal(t, first.ID, view.Songs[0].SongID)
		assert.Equal(t, int64(2), countRows(t, db, &models.PlaylistSong{}))

		require.NoError(t, svc.SetPlaylistSong(owner.ID, playlist.ID, second.ID, true))
		view, err = svc.GetPlaylist(playlist.ID)
		require.NoError(t, err)
		assert.Len(t, view.Songs, 2)
	})

	t.Run("hard delete of a membership", func(t *testing.T) {
		require.NoError(t, svc.RemovePlaylistSong(owner.ID, playlist.ID, second.ID))
		assert.Equal(t, int64(1), countRows(t, db, &models.PlaylistSong{}))

		err := svc.RemovePlaylistSong(owner.ID, playlist.ID, second.ID)
		assert.Equal(t, utils.KindNotFound, KindOf(err))
	})

	t.Run("other users cannot modify", func(t *testing.T) {
		stranger := test.CreateTestUser(t, db, "stranger", "ValidPass123!", models.RoleListener)
		err := svc.SetPlaylistSong(stranger.ID, playlist.ID, second.ID, true)
		assert.Equal(t, utils.KindForbidden, KindOf(err))

		err = svc.DeletePlaylist(stranger.ID, playlist.ID)
		assert.Equal(t, utils.KindForbidden, KindOf(err))
	})

	t.Run("unknown song", func(t *testing.T) {
		err := svc.SetPlaylistSong(owner.ID, playlist.ID, 9999, true)
		assert.Equal(t, utils.KindNotFound, KindOf(err))
	})

	t.Run("delete removes memberships", func(t *testing.T) {
		require.NoError(t, svc.DeletePlaylist(owner.ID, playlist.ID))
		assert.Zero(t, countRows(t, db, &models.Playlist{}))
		assert.Zero(t, countRows(t, db, &models.PlaylistSong{}))

		_, err := svc.GetPlaylist(playlist.ID)
		assert.Equal(t, utils.KindNotFound, KindOf(err))
	})
}

func TestCreatePlaylistValidation(t *testing.T) {
	db := test.GetTestDB(t)
	svc := NewPlaylistService(db, nil)
	owner := test.CreateTestUser(t, db, "maker", "ValidPass123!", models.RoleListener)

	_, err := svc.CreatePlaylist(owner.ID, "   ", nil)
	assert.Equal(t, utils.KindInvalidInput, KindOf(err))

	_, err = svc.CreatePlaylist(0, "Title", nil)
	assert.Equal(t, utils.KindInvalidInput, KindOf(err))

	_, err = svc.CreatePlaylist(12345, "Title", nil)
	assert.Equal(t, utils.KindNotFound, KindOf(err))

	empty := ""
	playlist, err := svc.CreatePlaylist(owner.ID, "No Avatar", &empty)
	require.NoError(t, err)
	assert.Nil(t, playlist.Avatar)
}
