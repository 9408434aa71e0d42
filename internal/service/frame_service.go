package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vigilo/proctor-backend/internal/config"
)

// Sentinel errors for frame uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed frame image MIME types.
var allowedFrameTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// FrameService stores evidence frame images on local disk. The stored path
// becomes the evidence reference carried by movement events.
type FrameService struct {
	cfg *config.Config
}

// NewFrameService creates a new FrameService.
func NewFrameService(cfg *config.Config) *FrameService {
	return &FrameService{cfg: cfg}
}

// SaveFrame saves an uploaded frame image under a name that encodes the
// session it belongs to. Returns the relative URL path to the saved file.
func (s *FrameService) SaveFrame(userID int, examID uuid.UUID, file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedFrameTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	if err := os.MkdirAll(s.cfg.FrameDir, 0o755); err != nil {
		return "", fmt.Errorf("create frame dir: %w", err)
	}

	filename := fmt.Sprintf("%d_%s_%s%s", userID, examID, time.Now().UTC().Format("20060102_150405.000000"), ext)
	destPath := filepath.Join(s.cfg.FrameDir, filename)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return "/frames/" + filename, nil
}

// FrameAbsPath resolves a stored relative frame path back to a file on disk.
// Only the base name is honored, so a stored path can never escape the frame
// directory.
func (s *FrameService) FrameAbsPath(framePath string) (string, error) {
	name := filepath.Base(framePath)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid frame path %q", framePath)
	}
	return filepath.Join(s.cfg.FrameDir, name), nil
}
