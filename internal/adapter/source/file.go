package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// File reads the accident file from the local filesystem.
type File struct {
	path string
}

// NewFile creates a File source for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Key combines the path with the file's size and modification time so an
// edited file is picked up on the next load.
func (f *File) Key(_ context.Context) (string, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return "", f.mapError(err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrFileNotFound, f.path)
	}
	return fmt.Sprintf("%s@%d-%d", f.path, info.Size(), info.ModTime().UnixNano()), nil
}

// Open opens the file, decompressing it when the name ends in .gz.
func (f *File) Open(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, f.mapError(err)
	}
	if !isGzipName(f.path) {
		return file, nil
	}
	rc, err := newGzipReadCloser(file)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %s: %w", domain.ErrParse, f.path, err)
	}
	return rc, nil
}

func (f *File) String() string { return f.path }

func (f *File) mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, f.path)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrFileNotFound, f.path, err)
}
