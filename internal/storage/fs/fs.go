// Package fs stores snapshots as JSON files under a root directory.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/shared/logger"
)

type Storage struct {
	rootPath string
}

// Ensure Storage implements the interfaces at compile time.
var (
	_ service.SnapshotStorage = (*Storage)(nil)
	_ service.SnapshotWatcher = (*Storage)(nil)
)

func New(rootPath string) (*Storage, error) {
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}
	return &Storage{rootPath: p}, nil
}

// path maps a key to a file directly under the root. Escaping keeps keys
// with separators from leaving the root.
func (s *Storage) path(key string) string {
	return filepath.Join(s.rootPath, url.PathEscape(key)+".json")
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return data, true, nil
}

// Put replaces the file atomically: readers see either the previous or the
// new content.
func (s *Storage) Put(_ context.Context, key string, data []byte) error {
	return atomicWriteFile(s.path(key), data, 0644)
}

func (s *Storage) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// Watch reports every replacement or removal of the key's file, including
// ones made by other processes.
func (s *Storage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the inode of the file itself.
	if err := watcher.Add(s.rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.rootPath, err)
	}

	target := s.path(key)
	log := logger.Component("fs_storage")
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("snapshot watcher error", "path", target, "error", err)
			}
		}
	}()

	return ch, nil
}

// atomicWriteFile writes to a temp file in the same directory, syncs it and
// renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
