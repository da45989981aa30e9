package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"communityhub/pkg/tracing"
)

// FileStorage implements Storage on the local filesystem. Save writes to a
// temporary file in the target directory and renames it into place, so a
// concurrent Load sees either the old or the new content, never a partial one.
type FileStorage struct {
	basePath string
}

// NewFileStorage creates a new file storage
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{
		basePath: basePath,
	}, nil
}

// BasePath returns the root directory
func (fs *FileStorage) BasePath() string {
	return fs.basePath
}

func (fs *FileStorage) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(fs.basePath, clean), nil
}

// Save atomically replaces the named file with data
func (fs *FileStorage) Save(ctx context.Context, name string, data io.Reader) (err error) {
	ctx, span := tracing.TraceStorageOperation(ctx, "save", name)
	defer func() {
		if err != nil {
			tracing.RecordError(ctx, err)
		}
		span.End()
	}()

	filePath, err := fs.path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Load opens the named file
func (fs *FileStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	_, span := tracing.TraceStorageOperation(ctx, "load", name)
	defer span.End()

	filePath, err := fs.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// List lists entries directly under the base path whose names start with
// prefix. Directories are included with a trailing '/'.
func (fs *FileStorage) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}

	return names, nil
}

// CreateDir creates a new directory and fails if it already exists
func (fs *FileStorage) CreateDir(ctx context.Context, dir string) error {
	dirPath, err := fs.path(dir)
	if err != nil {
		return err
	}
	return os.Mkdir(dirPath, 0755)
}

// Delete deletes a file
func (fs *FileStorage) Delete(ctx context.Context, name string) error {
	filePath, err := fs.path(name)
	if err != nil {
		return err
	}
	return os.Remove(filePath)
}
