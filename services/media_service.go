package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phantomhive/sebastian-api/services/spaces"
)

// ErrUnsupportedMediaType is returned for uploads whose declared MIME type is not an image
var ErrUnsupportedMediaType = errors.New("only image files are allowed")

// DefaultCaption is used when an image is uploaded without one
const DefaultCaption = "\U0001F4F7 Shared an image"

// MediaService validates and stores uploaded images, producing the reference URL
// persisted on the resulting message. Files always land on local disk (served under
// /uploads); when an S3-compatible backend is configured the returned reference
// points there instead.
type MediaService struct {
	uploadsDir string
	spaces     *spaces.Client
}

// NewMediaService creates a media service writing into uploadsDir.
// spacesClient may be nil, in which case only local storage is used.
func NewMediaService(uploadsDir string, spacesClient *spaces.Client) (*MediaService, error) {
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &MediaService{
		uploadsDir: uploadsDir,
		spaces:     spacesClient,
	}, nil
}

// UploadInput describes one uploaded file
type UploadInput struct {
	Data        []byte
	ContentType string // declared MIME type
	Filename    string // original client-side filename
}

// StoredMedia is the result of a successful store
type StoredMedia struct {
	URL      string // reference persisted on the message
	Filename string // generated unique filename
}

// Store validates the declared MIME type, writes the bytes under a
// collision-resistant name and returns the media reference.
func (s *MediaService) Store(ctx context.Context, in UploadInput) (*StoredMedia, error) {
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, ErrUnsupportedMediaType
	}

	filename := uniqueFilename(in.Filename)
	path := filepath.Join(s.uploadsDir, filename)

	if err := os.WriteFile(path, in.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	url := "/uploads/" + filename

	// Object storage is best effort: on failure the local copy still serves.
	if s.spaces != nil {
		remoteURL, err := s.spaces.UploadBytes(ctx, "uploads/"+filename, in.Data, in.ContentType)
		if err != nil {
			log.Printf("spaces upload failed for %s, serving local copy: %v", filename, err)
		} else {
			url = remoteURL
		}
	}

	return &StoredMedia{
		URL:      url,
		Filename: filename,
	}, nil
}

// UploadsDir returns the local storage directory
func (s *MediaService) UploadsDir() string {
	return s.uploadsDir
}

// uniqueFilename generates a UUID-based name preserving the original extension,
// defaulting to jpg when the upload carries none.
func uniqueFilename(original string) string {
	ext := strings.TrimPrefix(filepath.Ext(original), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s.%s", uuid.New().String(), strings.ToLower(ext))
}
