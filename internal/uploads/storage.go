package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/web3drender/pkg/logger"
)

// FilePrefix starts the name of every stored model file.
const FilePrefix = "model-"

var (
	// ErrUnsupportedType indicates an extension outside AllowedExtensions.
	ErrUnsupportedType = errors.New("uploads: unsupported file type")
	// ErrFileTooLarge indicates the payload exceeded the configured limit.
	ErrFileTooLarge = errors.New("uploads: file too large")
	// ErrContentMismatch indicates the bytes do not match the declared extension.
	ErrContentMismatch = errors.New("uploads: file content does not match its extension")
	// ErrInvalidName indicates a stored name that escapes the upload directory.
	ErrInvalidName = errors.New("uploads: invalid file name")
)

var blockedMIMEs = []string{
	"text/html",
	"application/x-elf",
	"application/x-executable",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
}

// StoredFile describes a file accepted by Storage.Save.
type StoredFile struct {
	Name         string
	OriginalName string
	Path         string
	Size         int64
	Extension    string
	Category     Category
	MIME         string
}

// Storage writes uploads into a single directory.
type Storage struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

// NewStorage prepares dir and returns a Storage enforcing maxSize bytes per file.
func NewStorage(dir string, maxSize int64) (*Storage, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("uploads: directory is required")
	}
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create directory: %w", err)
	}
	return &Storage{dir: dir, maxSize: maxSize, now: time.Now}, nil
}

// Dir returns the upload directory.
func (s *Storage) Dir() string { return s.dir }

// MaxSize returns the per-file byte limit.
func (s *Storage) MaxSize() int64 { return s.maxSize }

// SanitizeFilename strips directories and characters unsafe in file names.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func (s *Storage) uniqueName(ext string) string {
	return fmt.Sprintf("%s%d-%s%s", FilePrefix, s.now().UnixNano(), uuid.NewString(), ext)
}

// Save streams src to disk under a generated name and validates its content.
// Rejected files are removed before returning.
func (s *Storage) Save(originalName string, src io.Reader) (*StoredFile, error) {
	ext := Extension(SanitizeFilename(originalName))
	if !IsAllowedExtension(ext) {
		return nil, ErrUnsupportedType
	}

	name := s.uniqueName(ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("uploads: create file: %w", err)
	}

	written, copyErr := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		s.discard(path)
		return nil, fmt.Errorf("uploads: write file: %w", copyErr)
	}
	if written > s.maxSize {
		s.discard(path)
		return nil, ErrFileTooLarge
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		s.discard(path)
		return nil, fmt.Errorf("uploads: detect content: %w", err)
	}
	if err := checkContent(ext, detected); err != nil {
		s.discard(path)
		return nil, err
	}

	return &StoredFile{
		Name:         name,
		OriginalName: originalName,
		Path:         path,
		Size:         written,
		Extension:    ext,
		Category:     CategoryOf(ext),
		MIME:         detected.String(),
	}, nil
}

func checkContent(ext string, detected *mimetype.MIME) error {
	for _, blocked := range blockedMIMEs {
		if detected.Is(blocked) {
			return fmt.Errorf("%w: %s content is not allowed", ErrContentMismatch, detected.String())
		}
	}

	switch {
	case InCategory(CategoryImage, ext):
		if !strings.HasPrefix(detected.String(), "image/") {
			return fmt.Errorf("%w: expected an image, got %s", ErrContentMismatch, detected.String())
		}
	case ext == ".json" || ext == ".gltf":
		if !hasAncestor(detected, "application/json") {
			return fmt.Errorf("%w: expected JSON, got %s", ErrContentMismatch, detected.String())
		}
	case ext == ".pdf":
		if !detected.Is("application/pdf") {
			return fmt.Errorf("%w: expected PDF, got %s", ErrContentMismatch, detected.String())
		}
	case ext == ".glb":
		if !detected.Is("model/gltf-binary") {
			return fmt.Errorf("%w: expected glTF binary, got %s", ErrContentMismatch, detected.String())
		}
	}
	return nil
}

func hasAncestor(detected *mimetype.MIME, mime string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

func (s *Storage) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WithModule("uploads").Warn("failed to remove rejected upload", zap.String("path", path), zap.Error(err))
	}
}

// Path resolves a stored name inside the upload directory.
func (s *Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Storage) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// FileInfo describes a stored model file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// List returns every file in the directory carrying FilePrefix.
func (s *Storage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), FilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}
