package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tunebox/internal/database"
	"tunebox/internal/media"
	"tunebox/internal/metrics"
	"tunebox/internal/models"
	"tunebox/internal/test"
	"tunebox/internal/utils"
)

type uploadFixture struct {
	db      *gorm.DB
	store   *media.StagingStore
	service *UploadService
	metrics *metrics.Metrics
}

func newUploadFixture(t *testing.T, db *gorm.DB, workers int) *uploadFixture {
	t.Helper()

	store, err := media.NewStagingStore(t.TempDir(), nil)
	require.NoError(t, err)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	return &uploadFixture{
		db:      db,
		store:   store,
		service: NewUploadService(db, media.NewValidator(1<<20, 1<<22), m, nil, workers),
		metrics: m,
	}
}

func (f *uploadFixture) stage(t *testing.T, data []byte, name string) *media.StagedFile {
	t.Helper()
	staged, err := f.store.StageReader(bytes.NewReader(data), name)
	require.NoError(t, err)
	return staged
}

func assertRemoved(t *testing.T, files ...*media.StagedFile) {
	t.Helper()
	for _, f := range files {
		_, err := os.Stat(f.Path)
		assert.True(t, os.IsNotExist(err), "staging file %s still exists", f.Path)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestInsertAlbumRoundTrip(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "cover_artist", false)

	cover := test.PNGBytes(t)
	staged := f.stage(t, cover, "cover.png")

	albumID, err := f.service.InsertAlbum(context.Background(), AlbumUpload{
		UserID: user.ID,
		Name:   "First Light",
		Cover:  staged,
	})
	require.NoError(t, err)
	require.NotZero(t, albumID)

	var albums []models.Album
	require.NoError(t, db.Where("id = ?", albumID).Find(&albums).Error)
	require.Len(t, albums, 1)
	assert.Equal(t, cover, albums[0].AlbumCover)
	assert.Equal(t, artist.ID, albums[0].ArtistID)
	assert.Equal(t, "First Light", albums[0].AlbumName)

	assertRemoved(t, staged)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsTotal.WithLabelValues("album", metrics.OutcomeSuccess)))
}

func TestInsertAlbumQuota(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)

	t.Run("unverified artist limited to one album per day", func(t *testing.T) {
		user, _ := test.CreateTestArtist(t, db, "new_artist", false)

		first := f.stage(t, test.PNGBytes(t), "a.png")
		_, err := f.service.InsertAlbum(context.Background(), AlbumUpload{UserID: user.ID, Name: "One", Cover: first})
		require.NoError(t, err)

		second := f.stage(t, test.JPEGBytes(t), "b.jpg")
		_, err = f.service.InsertAlbum(context.Background(), AlbumUpload{UserID: user.ID, Name: "Two", Cover: second})
		require.Error(t, err)

		var qe *QuotaError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, QuotaScopeAlbum, qe.Scope)
		assert.True(t, errors.Is(err, ErrQuotaExceeded))
		assert.Equal(t, utils.KindAlbumQuotaExceeded, KindOf(err))
		assert.Equal(t, http.StatusForbidden, StatusOf(err))
		assert.Equal(t, database.AlbumQuotaMessage, err.Error())

		assertRemoved(t, first, second)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuotaRejectionsTotal.WithLabelValues("album")))
	})

	t.Run("album from a previous day does not count", func(t *testing.T) {
		user, artist := test.CreateTestArtist(t, db, "returning_artist", false)
		test.CreateTestAlbum(t, db, artist.ID, "Old", time.Now().AddDate(0, 0, -2))

		_, err := f.service.InsertAlbum(context.Background(), AlbumUpload{UserID: user.ID, Name: "New", Cover: f.stage(t, test.PNGBytes(t), "c.png")})
		assert.NoError(t, err)
	})

	t.Run("verified artist unaffected", func(t *testing.T) {
		user, _ := test.CreateTestArtist(t, db, "verified_artist", true)
		for i := 0; i < 3; i++ {
			_, err := f.service.InsertAlbum(context.Background(), AlbumUpload{
				UserID: user.ID,
				Name:   fmt.Sprintf("Album %d", i),
				Cover:  f.stage(t, test.PNGBytes(t), "cover.png"),
			})
			require.NoError(t, err)
		}
	})
}

func TestInsertAlbumRejections(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, _ := test.CreateTestArtist(t, db, "picky_artist", false)
	listener := test.CreateTestUser(t, db, "just_listening", "ValidPass123!", models.RoleListener)

	tests := []struct {
		name   string
		in     func() AlbumUpload
		kind   string
		status int
	}{
		{
			name:   "missing name",
			in:     func() AlbumUpload { return AlbumUpload{UserID: user.ID, Cover: f.stage(t, test.PNGBytes(t), "x.png")} },
			kind:   utils.KindInvalidInput,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing cover",
			in:     func() AlbumUpload { return AlbumUpload{UserID: user.ID, Name: "No Cover"} },
			kind:   utils.KindInvalidInput,
			status: http.StatusBadRequest,
		},
		{
			name:   "not an image",
			in:     func() AlbumUpload { return AlbumUpload{UserID: user.ID, Name: "Bad", Cover: f.stage(t, []byte("plain text"), "x.png")} },
			kind:   utils.KindInvalidAttachment,
			status: http.StatusBadRequest,
		},
		{
			name:   "account without artist profile",
			in:     func() AlbumUpload { return AlbumUpload{UserID: listener.ID, Name: "Nope", Cover: f.stage(t, test.PNGBytes(t), "x.png")} },
			kind:   utils.KindArtistProfileMissing,
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in()
			_, err := f.service.InsertAlbum(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.status, StatusOf(err))
			if in.Cover != nil {
				assertRemoved(t, in.Cover)
			}
		})
	}

	assert.Zero(t, countRows(t, db, &models.Album{}))
}

func TestInsertSongStoresFile(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "singer", false)
	album := test.CreateTestAlbum(t, db, artist.ID, "Debut", time.Now())

	audio := test.WAVBytes(t, 3, 1)
	staged := f.stage(t, audio, "take one.wav")

	songID, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: album.ID, File: staged})
	require.NoError(t, err)

	var song models.Song
	require.NoError(t, db.First(&song, songID).Error)
	assert.Equal(t, models.PlaceholderSongName, song.SongName)
	assert.True(t, song.IsAvailable)
	assert.Equal(t, 3, song.Duration)
	assert.Equal(t, artist.ID, song.ArtistID)
	require.NotNil(t, song.AlbumID)
	assert.Equal(t, album.ID, *song.AlbumID)

	var file models.SongFile
	require.NoError(t, db.Where("song_id = ?", songID).First(&file).Error)
	assert.Equal(t, audio, file.SongFile)
	assert.Equal(t, "take one.wav", file.FileName)
	assert.Equal(t, media.ContentTypeWAV, file.ContentType)

	assertRemoved(t, staged)
}

func TestInsertSongNamed(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "namer", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Named", time.Now())

	songID, err := f.service.InsertSong(context.Background(), SongUpload{
		UserID:  user.ID,
		AlbumID: album.ID,
		Name:    "  Opening  ",
		File:    f.stage(t, test.WAVBytes(t, 1, 2), "x.wav"),
	})
	require.NoError(t, err)

	var song models.Song
	require.NoError(t, db.First(&song, songID).Error)
	assert.Equal(t, "Opening", song.SongName)
}

func TestInsertSongRollsBackWhenFileInsertFails(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "unlucky", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Lost", time.Now())

	require.NoError(t, db.Exec(`CREATE TRIGGER fail_song_files BEFORE INSERT ON song_files
BEGIN
	SELECT RAISE(ABORT, 'forced song file failure');
END`).Error)

	staged := f.stage(t, test.WAVBytes(t, 1, 3), "lost.wav")
	_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: album.ID, File: staged})
	require.Error(t, err)
	assert.Equal(t, utils.KindInternal, KindOf(err))
	assert.False(t, errors.Is(err, ErrQuotaExceeded))

	assert.Zero(t, countRows(t, db, &models.Song{}))
	assert.Zero(t, countRows(t, db, &models.SongFile{}))
	assertRemoved(t, staged)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsTotal.WithLabelValues("song", metrics.OutcomeError)))
}

func TestInsertSongQuota(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "prolific", false)
	album := test.CreateTestAlbum(t, db, artist.ID, "Daily", time.Now())

	first := f.stage(t, test.WAVBytes(t, 1, 1), "1.wav")
	_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: album.ID, File: first})
	require.NoError(t, err)

	second := f.stage(t, test.WAVBytes(t, 1, 2), "2.wav")
	_, err = f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: album.ID, File: second})
	require.Error(t, err)
	assert.Equal(t, utils.KindSongQuotaExceeded, KindOf(err))
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
	assert.Equal(t, database.SongQuotaMessage, err.Error())

	assert.Equal(t, int64(1), countRows(t, db, &models.Song{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.SongFile{}))
	assertRemoved(t, first, second)
}

func TestInsertSongRejections(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "owner", true)
	other, otherArtist := test.CreateTestArtist(t, db, "intruder", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Mine", time.Now())
	test.CreateTestAlbum(t, db, otherArtist.ID, "Theirs", time.Now())

	t.Run("missing album", func(t *testing.T) {
		staged := f.stage(t, test.WAVBytes(t, 1, 1), "a.wav")
		_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, File: staged})
		assert.Equal(t, utils.KindInvalidInput, KindOf(err))
		assertRemoved(t, staged)
	})

	t.Run("unknown album", func(t *testing.T) {
		_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: 9999, File: f.stage(t, test.WAVBytes(t, 1, 1), "a.wav")})
		assert.Equal(t, utils.KindNotFound, KindOf(err))
	})

	t.Run("album of another artist", func(t *testing.T) {
		_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: other.ID, AlbumID: album.ID, File: f.stage(t, test.WAVBytes(t, 1, 1), "a.wav")})
		assert.Equal(t, utils.KindForbidden, KindOf(err))
	})

	t.Run("not audio", func(t *testing.T) {
		staged := f.stage(t, []byte("nothing to hear here"), "a.mp3")
		_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: user.ID, AlbumID: album.ID, File: staged})
		assert.Equal(t, utils.KindInvalidAttachment, KindOf(err))
		assertRemoved(t, staged)
	})

	assert.Zero(t, countRows(t, db, &models.Song{}))
}

func TestConcurrentSongInsertsKeepTheirOwnFiles(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "busy_band", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Live", time.Now())

	const n = 6
	payloads := make([][]byte, n)
	ids := make([]int64, n)
	errs := make([]error, n)
	for i := range payloads {
		payloads[i] = test.WAVBytes(t, 1, i+10)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		// every upload uses the same client file name
		staged := f.stage(t, payloads[i], "track.wav")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = f.service.InsertSong(context.Background(), SongUpload{
				UserID:  user.ID,
				AlbumID: album.ID,
				Name:    fmt.Sprintf("Track %d", i),
				File:    staged,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])

		var song models.Song
		require.NoError(t, db.First(&song, ids[i]).Error)
		assert.Equal(t, fmt.Sprintf("Track %d", i), song.SongName)

		var file models.SongFile
		require.NoError(t, db.Where("song_id = ?", ids[i]).First(&file).Error)
		assert.Equal(t, payloads[i], file.SongFile, "song %d got another upload's bytes", i)
	}
}

func TestInsertSongBatchStopsAfterQuota(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 1)
	user, artist := test.CreateTestArtist(t, db, "batcher", false)
	album := test.CreateTestAlbum(t, db, artist.ID, "Batch", time.Now())

	files := []*media.StagedFile{
		f.stage(t, test.WAVBytes(t, 1, 1), "intro.wav"),
		f.stage(t, test.WAVBytes(t, 1, 2), "verse.wav"),
		f.stage(t, test.WAVBytes(t, 1, 3), "outro.wav"),
	}

	result := f.service.InsertSongBatch(context.Background(), user.ID, album.ID, files)
	require.Len(t, result.Items, 3)

	assert.Equal(t, BatchStatusStored, result.Items[0].Status)
	assert.NotZero(t, result.Items[0].SongID)
	assert.Equal(t, BatchStatusFailed, result.Items[1].Status)
	assert.Equal(t, utils.KindSongQuotaExceeded, result.Items[1].Kind)
	assert.Equal(t, database.SongQuotaMessage, result.Items[1].Error)
	assert.Equal(t, BatchStatusSkipped, result.Items[2].Status)
	assert.True(t, result.QuotaExceeded)
	assert.Equal(t, 1, result.Stored)

	var song models.Song
	require.NoError(t, db.First(&song, result.Items[0].SongID).Error)
	assert.Equal(t, "intro", song.SongName)
	assert.Equal(t, int64(1), countRows(t, db, &models.SongFile{}))

	assertRemoved(t, files...)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsTotal.WithLabelValues("song", metrics.OutcomeSkipped)))
}

func TestInsertSongBatchIndependentFailures(t *testing.T) {
	db := test.GetTestDB(t)
	f := newUploadFixture(t, db, 3)
	user, artist := test.CreateTestArtist(t, db, "verified_batcher", true)
	album := test.CreateTestAlbum(t, db, artist.ID, "Mixed", time.Now())

	files := []*media.StagedFile{
		f.stage(t, test.WAVBytes(t, 1, 1), "good1.wav"),
		f.stage(t, []byte("garbage"), "bad.mp3"),
		f.stage(t, test.WAVBytes(t, 1, 2), "good2.wav"),
	}

	result := f.service.InsertSongBatch(context.Background(), user.ID, album.ID, files)
	assert.False(t, result.QuotaExceeded)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, BatchStatusStored, result.Items[0].Status)
	assert.Equal(t, BatchStatusFailed, result.Items[1].Status)
	assert.Equal(t, utils.KindInvalidAttachment, result.Items[1].Kind)
	assert.Equal(t, BatchStatusStored, result.Items[2].Status)
	assertRemoved(t, files...)
}

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), database.NewGORMConfig())
	require.NoError(t, err)
	return db, mock
}

func TestInsertAlbumTranslatesPostgresQuota(t *testing.T) {
	db, mock := newMockPostgres(t)
	f := newUploadFixture(t, db, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "artists"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "artist_name", "verified"}).AddRow(5, 7, "pg", false))
	mock.ExpectQuery(`INSERT INTO "albums"`).
		WillReturnError(&pgconn.PgError{Code: database.AlbumQuotaCode, Message: database.AlbumQuotaMessage})
	mock.ExpectRollback()

	staged := f.stage(t, test.PNGBytes(t), "cover.png")
	_, err := f.service.InsertAlbum(context.Background(), AlbumUpload{UserID: 7, Name: "Blocked", Cover: staged})
	require.Error(t, err)
	assert.Equal(t, utils.KindAlbumQuotaExceeded, KindOf(err))
	assertRemoved(t, staged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSongWithoutIdentifierRollsBack(t *testing.T) {
	db, mock := newMockPostgres(t)
	f := newUploadFixture(t, db, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "artists"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "artist_name", "verified"}).AddRow(5, 7, "pg", true))
	mock.ExpectQuery(`FROM "albums"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "artist_id", "album_name"}).AddRow(3, 5, "Ghost"))
	mock.ExpectQuery(`INSERT INTO "songs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	staged := f.stage(t, test.WAVBytes(t, 1, 1), "ghost.wav")
	_, err := f.service.InsertSong(context.Background(), SongUpload{UserID: 7, AlbumID: 3, File: staged})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingIdentifier))
	assert.Equal(t, utils.KindIntegrityFailure, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assertRemoved(t, staged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
