package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Source yields the full text of the document to answer questions about.
type Source interface {
	Load(ctx context.Context) (string, error)
}

type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path)}
}

func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(s.path) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", s.path, err)
	}
	return string(b), nil
}

// StaticSource serves an in-memory document.
type StaticSource string

func (s StaticSource) Load(ctx context.Context) (string, error) {
	return string(s), nil
}
