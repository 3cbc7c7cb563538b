package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Content types accepted for attachments
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeMPEG = "audio/mpeg"
	ContentTypeWAV  = "audio/wav"
)

// ErrInvalidAttachment is wrapped by every validation failure
var ErrInvalidAttachment = errors.New("invalid attachment")

// Validator checks attachments before anything is written to the database
type Validator struct {
	MaxImageBytes int64
	MaxAudioBytes int64
}

// AudioInfo describes a validated audio attachment
type AudioInfo struct {
	ContentType string
	Duration    time.Duration
}

// Seconds returns the duration rounded to whole seconds
func (a *AudioInfo) Seconds() int {
	return int(a.Duration.Round(time.Second) / time.Second)
}

// NewValidator creates a validator with the given size limits. A limit of
// zero disables the size check.
func NewValidator(maxImageBytes, maxAudioBytes int64) *Validator {
	return &Validator{
		MaxImageBytes: maxImageBytes,
		MaxAudioBytes: maxAudioBytes,
	}
}

// ValidateImage accepts JPEG and PNG covers and returns the content type
func (v *Validator) ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidAttachment)
	}
	if v.MaxImageBytes > 0 && int64(len(data)) > v.MaxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidAttachment, v.MaxImageBytes)
	}

	contentType := http.DetectContentType(data)
	if contentType != ContentTypeJPEG && contentType != ContentTypePNG {
		return "", fmt.Errorf("%w: unsupported image type %s", ErrInvalidAttachment, contentType)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: corrupt image: %v", ErrInvalidAttachment, err)
	}

	return contentType, nil
}

// ValidateAudio accepts WAV and MPEG audio and reports its duration
func (v *Validator) ValidateAudio(data []byte) (*AudioInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio file", ErrInvalidAttachment)
	}
	if v.MaxAudioBytes > 0 && int64(len(data)) > v.MaxAudioBytes {
		return nil, fmt.Errorf("%w: audio exceeds %d bytes", ErrInvalidAttachment, v.MaxAudioBytes)
	}

	if http.DetectContentType(data) == "audio/wave" {
		return validateWAV(data)
	}
	return validateMPEG(data)
}

func validateWAV(data []byte) (*AudioInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: malformed wav file", ErrInvalidAttachment)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: unreadable wav data: %v", ErrInvalidAttachment, err)
	}

	var duration time.Duration
	bytesPerSecond := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if bytesPerSecond > 0 {
		duration = time.Duration(dec.PCMLen()) * time.Second / time.Duration(bytesPerSecond)
	}

	return &AudioInfo{ContentType: ContentTypeWAV, Duration: duration}, nil
}

func validateMPEG(data []byte) (*AudioInfo, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not an mpeg audio file: %v", ErrInvalidAttachment, err)
	}

	var duration time.Duration
	// decoded PCM is 16-bit stereo, four bytes per sample frame
	if length := dec.Length(); length > 0 && dec.SampleRate() > 0 {
		frames := length / 4
		duration = time.Duration(frames) * time.Second / time.Duration(dec.SampleRate())
	}

	return &AudioInfo{ContentType: ContentTypeMPEG, Duration: duration}, nil
}
