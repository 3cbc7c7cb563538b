package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StagingStore writes uploaded attachments to a local directory before their
// bytes are persisted. Files are named by a generated id, never by the name
// the client sent, so concurrent uploads cannot overwrite each other.
type StagingStore struct {
	dir    string
	logger *zerolog.Logger
}

// StagedFile is one attachment on disk
type StagedFile struct {
	Path         string
	OriginalName string
	Size         int64

	removeOnce sync.Once
	removeErr  error
}

// NewStagingStore creates the staging directory if needed
func NewStagingStore(dir string, logger *zerolog.Logger) (*StagingStore, error) {
	if dir == "" {
		return nil, errors.New("staging directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &StagingStore{dir: dir, logger: logger}, nil
}

// Dir returns the staging directory
func (s *StagingStore) Dir() string {
	return s.dir
}

// Stage copies a multipart attachment into the staging directory
func (s *StagingStore) Stage(fh *multipart.FileHeader) (*StagedFile, error) {
	if fh == nil {
		return nil, errors.New("no attachment")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer src.Close()

	return s.StageReader(src, fh.Filename)
}

// StageReader copies r into a new staging file. originalName only
// contributes its extension to the staged name.
func (s *StagingStore) StageReader(r io.Reader, originalName string) (*StagedFile, error) {
	path := filepath.Join(s.dir, uuid.NewString()+safeExt(originalName))

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	size, copyErr := io.Copy(dst, r)
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write staging file: %w", copyErr)
	}

	if s.logger != nil {
		s.logger.Debug().Str("path", path).Str("original_name", originalName).Int64("size", size).Msg("Attachment staged")
	}

	return &StagedFile{
		Path:         path,
		OriginalName: filepath.Base(originalName),
		Size:         size,
	}, nil
}

// Bytes reads the staged file back into memory
func (f *StagedFile) Bytes() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging file: %w", err)
	}
	return data, nil
}

// Remove deletes the staged file. Calling it again returns the first result.
func (f *StagedFile) Remove() error {
	if f == nil {
		return nil
	}
	f.removeOnce.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.removeErr = err
		}
	})
	return f.removeErr
}

// safeExt keeps a short alphanumeric extension of name, or nothing
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
