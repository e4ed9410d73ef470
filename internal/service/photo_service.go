package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecocycle/ewaste-api/internal/dto"
	appErrors "github.com/ecocycle/ewaste-api/pkg/errors"
)

type photoStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// PhotoConfig bounds pickup photo uploads.
type PhotoConfig struct {
	PublicBaseURL    string
	MaxFiles         int
	MaxFileSizeBytes int64
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
	"image/avif": ".avif",
}

// photoExtension sniffs data and returns the stored extension for a
// supported image type, walking up the detected type's parents.
func photoExtension(data []byte) (string, bool) {
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if ext, ok := photoExtensions[mt.String()]; ok {
			return ext, true
		}
	}
	return "", false
}

// PhotoService stores pickup photos and maps them to public URLs.
type PhotoService struct {
	storage photoStorage
	cfg     PhotoConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPhotoService constructs the service.
func NewPhotoService(storage photoStorage, cfg PhotoConfig, metrics *MetricsService, logger *zap.Logger) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &PhotoService{storage: storage, cfg: cfg, metrics: metrics, logger: logger}
}

// Validate checks count, size and sniffed content type without touching storage.
func (s *PhotoService) Validate(photos []dto.PhotoUpload) error {
	if len(photos) > s.cfg.MaxFiles {
		return appErrors.Field("photos", fmt.Sprintf("at most %d photos can be attached", s.cfg.MaxFiles))
	}
	for _, photo := range photos {
		size := photo.Size
		if size <= 0 {
			size = int64(len(photo.Data))
		}
		if size == 0 {
			return appErrors.Field("photos", fmt.Sprintf("%s is empty", photo.Filename))
		}
		if size > s.cfg.MaxFileSizeBytes {
			return appErrors.Field("photos", fmt.Sprintf("%s exceeds the %d MB limit", photo.Filename, s.cfg.MaxFileSizeBytes/(1024*1024)))
		}
		if _, ok := photoExtension(photo.Data); !ok {
			return appErrors.Field("photos", fmt.Sprintf("%s is not a supported image", photo.Filename))
		}
	}
	return nil
}

// Upload stores every photo under the owner's folder. If any write fails the
// files already written for this batch are removed and the error is returned.
func (s *PhotoService) Upload(ctx context.Context, ownerID string, photos []dto.PhotoUpload) ([]string, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	stored := make([]string, 0, len(photos))
	for _, photo := range photos {
		if err := ctx.Err(); err != nil {
			s.rollback(stored)
			s.metrics.RecordPhotoUpload(false)
			return nil, err
		}
		ext, _ := photoExtension(photo.Data)
		name := path.Join(ownerID, uuid.NewString()+ext)
		rel, err := s.storage.Save(name, photo.Data)
		if err != nil {
			s.rollback(stored)
			s.metrics.RecordPhotoUpload(false)
			return nil, fmt.Errorf("store photo %s: %w", photo.Filename, err)
		}
		stored = append(stored, rel)
	}
	s.metrics.RecordPhotoUpload(true)

	urls := make([]string, len(stored))
	for i, rel := range stored {
		urls[i] = s.cfg.PublicBaseURL + "/" + rel
	}
	return urls, nil
}

// Remove deletes previously uploaded photos by their public URLs.
func (s *PhotoService) Remove(_ context.Context, urls []string) error {
	var errs []error
	for _, url := range urls {
		rel := strings.TrimPrefix(strings.TrimPrefix(url, s.cfg.PublicBaseURL), "/")
		if err := s.storage.Delete(rel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *PhotoService) rollback(stored []string) {
	for _, rel := range stored {
		if err := s.storage.Delete(rel); err != nil {
			s.logger.Warn("failed to remove photo after failed upload", zap.String("path", rel), zap.Error(err))
		}
	}
}
