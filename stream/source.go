package stream

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Resource is an open, read-only byte resource of known size.
type Resource interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Source opens a fresh Resource per request. Implementations must allow any
// number of concurrent opens.
type Source interface {
	Open(ctx context.Context) (Resource, error)
}

// FileSource serves a file from disk.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Open opens the file read-only and stats it.
func (s *FileSource) Open(_ context.Context) (Resource, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("stream: failed to open %s: %w", s.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream: failed to stat %s: %w", s.Path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("stream: %s is a directory", s.Path)
	}

	return &fileResource{File: f, size: info.Size()}, nil
}

type fileResource struct {
	*os.File
	size int64
}

func (r *fileResource) Size() int64 {
	return r.size
}
