package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"helmetweb/internal/config"
	"helmetweb/internal/logger"
	"helmetweb/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrArtifactNotFound means the detection run left no media file behind.
	ErrArtifactNotFound = errors.New("prediction file not found")
	// ErrInvalidName rejects names that would escape the output directory.
	ErrInvalidName = errors.New("invalid file name")
)

// ArtifactExtensions are the media types looked for in a save directory.
var ArtifactExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".mp4": true, ".avi": true, ".mov": true,
}

// FileStore owns the upload, scratch and output directories. All names it
// creates carry a random id prefix so concurrent requests never collide.
type FileStore struct {
	uploadDir  string
	outputDir  string
	scratchDir string
	logger     *logger.Logger
}

// NewFileStore creates a FileStore over the directories named in config.
func NewFileStore(config *config.Config, logger *logger.Logger) *FileStore {
	return &FileStore{
		uploadDir:  config.UploadDirectory,
		outputDir:  config.OutputDirectory,
		scratchDir: config.ScratchDirectory,
		logger:     logger,
	}
}

// EnsureDirectories creates the upload and output directories.
func (s *FileStore) EnsureDirectories() error {
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputDirectory is the public directory artifacts are served from.
func (s *FileStore) OutputDirectory() string {
	return s.outputDir
}

// NewID returns 32 hex characters of a random UUID.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// SaveUpload writes r to the upload directory as "<id>_<name>".
func (s *FileStore) SaveUpload(filename string, r io.Reader) (model.Upload, error) {
	id := NewID()
	name := id + "_" + SanitizeName(filename)
	fullpath := filepath.Join(s.uploadDir, name)

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return model.Upload{}, fmt.Errorf("error creating upload directory: %w", err)
	}
	if err := writeFile(fullpath, r); err != nil {
		return model.Upload{}, fmt.Errorf("error saving upload %s: %w", name, err)
	}

	return model.Upload{ID: id, Filename: filename, Path: fullpath}, nil
}

// ScratchDir is the private save directory of one request.
func (s *FileStore) ScratchDir(id string) string {
	return filepath.Join(s.scratchDir, id)
}

// RemoveScratch deletes the request's save directory tree. Only the
// directory of this id is touched, so concurrent requests are unaffected.
func (s *FileStore) RemoveScratch(id string) error {
	if id == "" {
		return ErrInvalidName
	}
	return os.RemoveAll(s.ScratchDir(id))
}

// FindArtifact returns the first file in dir, in name order, with a known
// media extension.
func FindArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrArtifactNotFound
		}
		return "", fmt.Errorf("error reading save directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ArtifactExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", ErrArtifactNotFound
}

// Publish copies src into the output directory under a fresh unique name.
func (s *FileStore) Publish(src string) (model.Artifact, error) {
	in, err := os.Open(src)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("error opening artifact: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return model.Artifact{}, fmt.Errorf("error creating output directory: %w", err)
	}

	name := NewID() + "_" + filepath.Base(src)
	if err := writeFile(filepath.Join(s.outputDir, name), in); err != nil {
		return model.Artifact{}, fmt.Errorf("error publishing artifact %s: %w", name, err)
	}

	s.logger.Info("Published artifact %s", name)
	return NewArtifact(name), nil
}

// OutputPath resolves an artifact name inside the output directory.
func (s *FileStore) OutputPath(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.outputDir, name), nil
}

// NewArtifact describes an output file by its name.
func NewArtifact(name string) model.Artifact {
	return model.Artifact{
		Filename: name,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
	}
}

// SanitizeName strips any directory part a client put into a file name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == 0 || r == '/' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// ValidName reports whether name is a plain file name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func writeFile(fullpath string, r io.Reader) error {
	out, err := os.OpenFile(fullpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(fullpath)
		return err
	}
	return out.Close()
}
