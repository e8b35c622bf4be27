package asklog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// FileLogger appends entries as JSON lines.
type FileLogger struct {
	writer io.Writer
	closer io.Closer
	mu     sync.Mutex
	count  atomic.Int64
}

func NewFileLogger(w io.Writer) *FileLogger {
	return &FileLogger{writer: w}
}

func OpenFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create question log dir: %w", err)
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		return nil, fmt.Errorf("open question log: %w", err)
	}
	l := NewFileLogger(f)
	l.closer = f
	return l, nil
}

func (l *FileLogger) Record(ctx context.Context, entry Entry) error {
	stamp(&entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		return fmt.Errorf("write question log entry: %w", err)
	}
	l.count.Add(1)
	return nil
}

// Count reports entries written by this process.
func (l *FileLogger) Count(ctx context.Context) (int, error) {
	return int(l.count.Load()), nil
}

func (l *FileLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
