package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"tunebox/internal/logging"
	"tunebox/internal/media"
	"tunebox/internal/metrics"
	"tunebox/internal/models"
	"tunebox/internal/tracing"
)

// Batch item states
const (
	BatchStatusStored  = "stored"
	BatchStatusFailed  = "failed"
	BatchStatusSkipped = "skipped"
)

// UploadService runs the album cover and song file pipelines. Every run uses
// one transaction and removes its staged attachment on every exit path.
type UploadService struct {
	db           *gorm.DB
	validator    *media.Validator
	metrics      *metrics.Metrics
	logger       *zerolog.Logger
	batchWorkers int
	now          func() time.Time
}

// AlbumUpload is the input of the album cover pipeline
type AlbumUpload struct {
	UserID int64
	Name   string
	Cover  *media.StagedFile
}

// SongUpload is the input of the song file pipeline. An empty Name stores
// the placeholder name.
type SongUpload struct {
	UserID  int64
	AlbumID int64
	Name    string
	File    *media.StagedFile
}

// BatchItem is the outcome of one song of a batch upload
type BatchItem struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	SongID   int64  `json:"song_id,omitempty"`
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// BatchResult reports every song of a batch upload
type BatchResult struct {
	AlbumID       int64       `json:"album_id"`
	Items         []BatchItem `json:"items"`
	Stored        int         `json:"stored"`
	QuotaExceeded bool        `json:"quota_exceeded"`
}

// NewUploadService creates the upload pipelines
func NewUploadService(db *gorm.DB, validator *media.Validator, m *metrics.Metrics, logger *zerolog.Logger, batchWorkers int) *UploadService {
	if batchWorkers < 1 {
		batchWorkers = 1
	}
	return &UploadService{
		db:           db,
		validator:    validator,
		metrics:      m,
		logger:       logger,
		batchWorkers: batchWorkers,
		now:          time.Now,
	}
}

// InsertAlbum stores an album with its cover and returns the album id
func (s *UploadService) InsertAlbum(ctx context.Context, in AlbumUpload) (albumID int64, err error) {
	defer s.removeStaged(ctx, in.Cover)

	start := time.Now()
	ctx, span := tracing.Start(ctx, "upload.album", tracing.UploadAttrs("album", in.UserID, 0)...)
	defer span.End()

	var size int
	defer func() {
		s.observe(ctx, "album", start, size, err)
	}()

	name := strings.TrimSpace(in.Name)
	if in.UserID <= 0 || name == "" || in.Cover == nil {
		return 0, fmt.Errorf("%w: user_id, albumName and img are required", ErrInvalidInput)
	}

	data, err := in.Cover.Bytes()
	if err != nil {
		return 0, err
	}
	if _, err := s.validator.ValidateImage(data); err != nil {
		return 0, err
	}
	size = len(data)

	now := s.now()
	album := &models.Album{
		AlbumName:  name,
		AlbumCover: data,
		CreateAt:   now,
		UpdateAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		artist, err := repo.GetArtistByUserID(in.UserID)
		if err != nil {
			return err
		}
		album.ArtistID = artist.ID

		if err := repo.CreateAlbum(album); err != nil {
			return TranslateQuotaError(err)
		}
		if album.ID == 0 {
			return ErrMissingIdentifier
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	tracing.AddAttributes(ctx, attribute.Int64("album_id", album.ID))
	return album.ID, nil
}

// InsertSong stores a song row and its file in one transaction and returns
// the song id. The song row never survives a failed file insert.
func (s *UploadService) InsertSong(ctx context.Context, in SongUpload) (songID int64, err error) {
	defer s.removeStaged(ctx, in.File)

	start := time.Now()
	ctx, span := tracing.Start(ctx, "upload.song", tracing.UploadAttrs("song", in.UserID, in.AlbumID)...)
	defer span.End()

	var size int
	defer func() {
		s.observe(ctx, "song", start, size, err)
	}()

	if in.UserID <= 0 || in.AlbumID <= 0 || in.File == nil {
		return 0, fmt.Errorf("%w: user_id, album_id and song are required", ErrInvalidInput)
	}

	data, err := in.File.Bytes()
	if err != nil {
		return 0, err
	}
	info, err := s.validator.ValidateAudio(data)
	if err != nil {
		return 0, err
	}
	size = len(data)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.PlaceholderSongName
	}
	albumID := in.AlbumID
	song := &models.Song{
		AlbumID:     &albumID,
		SongName:    name,
		Duration:    info.Seconds(),
		IsAvailable: true,
		CreatedAt:   s.now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		artist, err := repo.GetArtistByUserID(in.UserID)
		if err != nil {
			return err
		}
		album, err := repo.GetAlbumByID(in.AlbumID)
		if err != nil {
			return err
		}
		if album.ArtistID != artist.ID {
			return fmt.Errorf("%w: album %d belongs to another artist", ErrForbidden, album.ID)
		}
		song.ArtistID = artist.ID

		if err := repo.CreateSong(song); err != nil {
			return TranslateQuotaError(err)
		}
		if song.ID == 0 {
			return ErrMissingIdentifier
		}

		if err := repo.CreateSongFile(&models.SongFile{
			SongID:      song.ID,
			SongFile:    data,
			FileName:    in.File.OriginalName,
			ContentType: info.ContentType,
		}); err != nil {
			return fmt.Errorf("failed to store song file: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	tracing.AddAttributes(ctx, attribute.Int64("song_id", song.ID))
	return song.ID, nil
}

// InsertSongBatch uploads several songs into one album. Songs are stored
// independently: a failure never undoes another song. Once a quota rejection
// is seen no further song is started and the remaining ones are skipped.
func (s *UploadService) InsertSongBatch(ctx context.Context, userID, albumID int64, files []*media.StagedFile) *BatchResult {
	result := &BatchResult{
		AlbumID: albumID,
		Items:   make([]BatchItem, len(files)),
	}

	var (
		quotaHit atomic.Bool
		mu       sync.Mutex
	)

	record := func(i int, item BatchItem) {
		mu.Lock()
		defer mu.Unlock()
		result.Items[i] = item
	}

	g := new(errgroup.Group)
	g.SetLimit(s.batchWorkers)

	for i, file := range files {
		item := BatchItem{Index: i}
		if file != nil {
			item.FileName = file.OriginalName
		}

		if quotaHit.Load() {
			s.skip(ctx, file, item, record)
			continue
		}

		g.Go(func() error {
			if quotaHit.Load() {
				s.skip(ctx, file, item, record)
				return nil
			}

			songID, err := s.InsertSong(ctx, SongUpload{
				UserID:  userID,
				AlbumID: albumID,
				Name:    songNameFromFile(item.FileName),
				File:    file,
			})
			if err != nil {
				if errors.Is(err, ErrQuotaExceeded) {
					quotaHit.Store(true)
				}
				item.Status = BatchStatusFailed
				item.Error = MessageOf(err)
				item.Kind = KindOf(err)
			} else {
				item.Status = BatchStatusStored
				item.SongID = songID
			}
			record(i, item)
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range result.Items {
		if item.Status == BatchStatusStored {
			result.Stored++
		}
	}
	result.QuotaExceeded = quotaHit.Load()
	return result
}

func (s *UploadService) skip(ctx context.Context, file *media.StagedFile, item BatchItem, record func(int, BatchItem)) {
	s.removeStaged(ctx, file)
	s.metrics.ObserveSkipped("song")
	item.Status = BatchStatusSkipped
	record(item.Index, item)
}

func (s *UploadService) removeStaged(ctx context.Context, file *media.StagedFile) {
	if err := file.Remove(); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("req_id", logging.GetRequestID(ctx)).Str("path", file.Path).Msg("Failed to remove staged attachment")
	}
}

func (s *UploadService) observe(ctx context.Context, kind string, start time.Time, size int, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrQuotaExceeded):
		outcome = metrics.OutcomeQuota
	case StatusOf(err) < 500:
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveUpload(kind, outcome, time.Since(start).Seconds(), size)

	if err != nil {
		tracing.SetSpanError(ctx, err)
	}
	if s.logger == nil {
		return
	}
	event := s.logger.Info()
	if outcome == metrics.OutcomeError {
		event = s.logger.Error().Err(err)
	} else if err != nil {
		event = s.logger.Warn().Str("kind", KindOf(err)).Str("reason", err.Error())
	}
	event.
		Str("req_id", logging.GetRequestID(ctx)).
		Str("upload", kind).
		Str("outcome", outcome).
		Int("bytes", size).
		Dur("duration", time.Since(start)).
		Msg("Upload pipeline finished")
}

func songNameFromFile(name string) string {
	return strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
}
