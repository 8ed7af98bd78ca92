// Package blob keeps attachment bytes on local disk. A reference is the
// path of the stored file relative to the root.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/staffdesk/messenger/internal/domain"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
)

type Storage struct {
	rootPath string
}

func New(rootPath string) (*Storage, error) {
	// Use filepath.Clean to prevent path traversal issues like "media/../"
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}
	return &Storage{rootPath: p}, nil
}

// Save copies data under a fresh name that keeps the original extension and
// returns the reference and the number of bytes written.
func (s *Storage) Save(data io.Reader, originalFilename string) (domain.ContentRef, int64, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	id := uuid.NewString()
	ref := filepath.ToSlash(filepath.Join(id[:2], id+ext))
	fullPath := filepath.Join(s.rootPath, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create subdirectories: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, data)
	if err != nil {
		os.Remove(fullPath) // Best effort, ignore error here.
		return "", 0, fmt.Errorf("failed to copy file data: %w", err)
	}
	return ref, n, nil
}

func (s *Storage) resolve(ref domain.ContentRef) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if ref == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid reference %q", internal_errors.ErrAttachmentNotFound, ref)
	}
	return filepath.Join(s.rootPath, clean), nil
}

// Read opens the stored bytes for ref.
func (s *Storage) Read(ref domain.ContentRef) (io.ReadCloser, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", internal_errors.ErrAttachmentNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *Storage) Delete(ref domain.ContentRef) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
