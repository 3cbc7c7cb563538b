package media_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunebox/internal/media"
	"tunebox/internal/test"
)

func TestValidateImage(t *testing.T) {
	v := media.NewValidator(1<<20, 1<<20)

	t.Run("png", func(t *testing.T) {
		ct, err := v.ValidateImage(test.PNGBytes(t))
		require.NoError(t, err)
		assert.Equal(t, media.ContentTypePNG, ct)
	})

	t.Run("jpeg", func(t *testing.T) {
		ct, err := v.ValidateImage(test.JPEGBytes(t))
		require.NoError(t, err)
		assert.Equal(t, media.ContentTypeJPEG, ct)
	})

	t.Run("rejects text", func(t *testing.T) {
		_, err := v.ValidateImage([]byte("definitely not an image"))
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})

	t.Run("rejects truncated png", func(t *testing.T) {
		_, err := v.ValidateImage(test.PNGBytes(t)[:12])
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := v.ValidateImage(nil)
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})

	t.Run("rejects oversize", func(t *testing.T) {
		small := media.NewValidator(16, 0)
		_, err := small.ValidateImage(test.PNGBytes(t))
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})
}

func TestValidateAudio(t *testing.T) {
	v := media.NewValidator(0, 1<<20)

	t.Run("wav duration", func(t *testing.T) {
		info, err := v.ValidateAudio(test.WAVBytes(t, 2, 1))
		require.NoError(t, err)
		assert.Equal(t, media.ContentTypeWAV, info.ContentType)
		assert.Equal(t, 2*time.Second, info.Duration)
		assert.Equal(t, 2, info.Seconds())
	})

	mp3Duration := time.Duration(test.MP3FrameCount*1152) * time.Second / 44100

	t.Run("mp3 duration", func(t *testing.T) {
		info, err := v.ValidateAudio(test.MP3Bytes(t, false))
		require.NoError(t, err)
		assert.Equal(t, media.ContentTypeMPEG, info.ContentType)
		assert.Equal(t, mp3Duration, info.Duration)
		assert.Equal(t, 1, info.Seconds())
	})

	t.Run("mp3 with id3 tag", func(t *testing.T) {
		info, err := v.ValidateAudio(test.MP3Bytes(t, true))
		require.NoError(t, err)
		assert.Equal(t, media.ContentTypeMPEG, info.ContentType)
		assert.Equal(t, mp3Duration, info.Duration)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := v.ValidateAudio([]byte("this is not audio at all"))
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})

	t.Run("rejects image", func(t *testing.T) {
		_, err := v.ValidateAudio(test.PNGBytes(t))
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})

	t.Run("rejects oversize", func(t *testing.T) {
		small := media.NewValidator(0, 64)
		_, err := small.ValidateAudio(test.WAVBytes(t, 1, 1))
		assert.True(t, errors.Is(err, media.ErrInvalidAttachment))
	})
}
