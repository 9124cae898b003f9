package filestore

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/YellowFlash2012/hoaxgate/internal/config"

	"github.com/google/uuid"
)

// Store handles files on local disk: profile images and hoax
// attachments, each in their own folder under the upload dir.
type Store struct {
	profileFolder    string
	attachmentFolder string
}

// New builds a Store from the upload configuration.
func New(cfg config.UploadConfig) *Store {
	return &Store{
		profileFolder:    filepath.Join(cfg.Dir, cfg.ProfileDir),
		attachmentFolder: filepath.Join(cfg.Dir, cfg.AttachmentDir),
	}
}

// CreateFolders makes sure both upload folders exist.
func (s *Store) CreateFolders() error {
	for _, dir := range []string{s.profileFolder, s.attachmentFolder} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return nil
}

// ProfileFolder returns the directory profile images are served from.
func (s *Store) ProfileFolder() string { return s.profileFolder }

// AttachmentFolder returns the directory attachments are served from.
func (s *Store) AttachmentFolder() string { return s.attachmentFolder }

// SaveProfileImage decodes a base64 image and stores it under a random
// name, returning the stored filename.
func (s *Store) SaveProfileImage(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode profile image: %w", err)
	}

	name := uuid.NewString()
	if err := os.WriteFile(filepath.Join(s.profileFolder, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write profile image: %w", err)
	}
	return name, nil
}

// DeleteProfileImage removes a stored profile image. Missing files are
// ignored.
func (s *Store) DeleteProfileImage(name string) {
	if name == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.profileFolder, name))
}

// SaveAttachment stores raw attachment bytes under a random name that
// keeps the original extension. It returns the stored filename and the
// MIME type sniffed from the content.
func (s *Store) SaveAttachment(originalName string, data []byte) (string, string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	if err := os.WriteFile(filepath.Join(s.attachmentFolder, name), data, 0o644); err != nil {
		return "", "", fmt.Errorf("write attachment: %w", err)
	}
	return name, http.DetectContentType(data), nil
}

// DeleteAttachment removes a stored attachment file. Missing files are
// ignored.
func (s *Store) DeleteAttachment(name string) {
	if name == "" {
		return
	}
	_ = os.Remove(filepath.Join(s.attachmentFolder, name))
}
